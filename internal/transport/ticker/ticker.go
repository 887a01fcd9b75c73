// Package ticker implements a session that samples subscribed leaves on a
// fixed period.
//
// Changes are coalesced in the session's queue between ticks, so a
// parameter that changes a thousand times within one interval produces a
// single sample carrying its newest value. Each tick hands the drained
// batch to a Sink.
package ticker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/updates"
)

// defaultInterval applies when telemetry.interval is unset.
const defaultInterval = 10 * time.Second

// Sink receives the updates collected during one interval, oldest first.
type Sink interface {
	WriteBatch(batch []updates.Update) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(batch []updates.Update) error

// WriteBatch calls f(batch).
func (f SinkFunc) WriteBatch(batch []updates.Update) error {
	return f(batch)
}

// Deps holds the dependencies of a Sampler.
type Deps struct {
	Config    config.TelemetryConfig
	Tree      *tree.Tree
	Callbacks *session.Callbacks
	Sink      Sink
	Logger    *logging.Logger

	// Clock drives the ticker and stamps updates; the wall clock when nil.
	Clock clock.Clock
}

// Sampler is the periodic-tick session.
type Sampler struct {
	cfg      config.TelemetryConfig
	sink     Sink
	clock    clock.Clock
	interval time.Duration
	logger   *logging.Logger
	session  *session.Client

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Sampler. Nothing is subscribed until Start.
func New(deps Deps) (*Sampler, error) {
	if deps.Tree == nil {
		return nil, errors.New("ticker: tree is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("ticker: sink is required")
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	interval := deps.Config.DrainInterval()
	if interval <= 0 {
		interval = defaultInterval
	}

	s := &Sampler{
		cfg:      deps.Config,
		sink:     deps.Sink,
		clock:    clk,
		interval: interval,
		logger:   logger.Component("ticker"),
		done:     make(chan struct{}),
	}
	endpoint := &transport.Endpoint{
		Type:   "ticker",
		Remote: interval.String(),
		Start:  s.subscribe,
	}
	s.session = session.New(deps.Tree, endpoint, deps.Callbacks,
		session.WithClock(clk),
		session.WithLogger(s.logger),
	)
	return s, nil
}

// Session returns the sampler's session.
func (s *Sampler) Session() *session.Client {
	return s.session
}

// subscribe runs once from the session's Open.
func (s *Sampler) subscribe() error {
	uris := s.cfg.Subscribe
	if len(uris) == 0 {
		err := s.session.Browse("", func(info tree.Info) error {
			if info.Kind == tree.KindParameter {
				uris = append(uris, info.URI)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	for _, uri := range uris {
		if err := s.session.Subscribe(uri); err != nil {
			return fmt.Errorf("sampling %s: %w", uri, err)
		}
	}
	s.logger.Info("sampler started", "leaves", len(uris), "interval", s.interval)
	return nil
}

// Start subscribes and begins ticking until ctx is cancelled or Close is
// called.
func (s *Sampler) Start(ctx context.Context) error {
	if err := s.session.Open(); err != nil {
		s.session.Close()
		return err
	}

	ticker := s.clock.Ticker(s.interval)
	s.wg.Add(1)
	go s.run(ctx, ticker)
	return nil
}

func (s *Sampler) run(ctx context.Context, ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick drains pending updates into the sink. It reports the batch size.
func (s *Sampler) Tick() int {
	var batch []updates.Update
	s.session.Drain(func(u updates.Update) {
		batch = append(batch, u)
	})
	if len(batch) == 0 {
		return 0
	}
	if err := s.sink.WriteBatch(batch); err != nil {
		s.logger.Warn("telemetry sink write failed", "updates", len(batch), "error", err)
	}
	return len(batch)
}

// Close stops the ticker, hands any pending updates to the sink and
// closes the session.
func (s *Sampler) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.Tick()
		s.session.Close()
	})
}
