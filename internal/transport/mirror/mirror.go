// Package mirror reflects dictionary leaves onto MQTT.
//
// The mirror is a session without a network peer. Every change to a
// mirrored leaf is published to <prefix>/state/<path>, retained for
// parameters so late subscribers see the current value. Unless the mirror
// is read-only, messages on <prefix>/set/<path> write parameters (or fire
// events) through the same session, subject to its userlevel.
//
//	laser1:power = 0.8   ->   dictd/state/laser1/power   0.8
//	dictd/set/laser1/power  1.0   ->   Set("laser1:power", 1.0)
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/updates"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

// Payload formats.
const (
	FormatJSON = "json"
	FormatCBOR = "cbor"
)

// ErrUnknownFormat is returned by New for payload formats other than
// FormatJSON and FormatCBOR.
var ErrUnknownFormat = errors.New("mirror: unknown payload format")

// Broker is the subset of the MQTT client the mirror uses.
// *mqtt.Client satisfies it.
type Broker interface {
	Topics() mqtt.Topics
	PublishState(uri string, payload []byte) error
	PublishEvent(uri string, payload []byte) error
	SubscribeSets(handler mqtt.SetHandler) error
	UnsubscribeSets() error
	SetOnConnect(callback func())
}

// Deps holds the dependencies of a Mirror.
type Deps struct {
	Config    config.MirrorConfig
	Broker    Broker
	Tree      *tree.Tree
	Callbacks *session.Callbacks
	Logger    *logging.Logger
}

// Mirror publishes dictionary changes to MQTT and applies inbound writes.
type Mirror struct {
	cfg     config.MirrorConfig
	broker  Broker
	topics  mqtt.Topics
	tree    *tree.Tree
	logger  *logging.Logger
	session *session.Client

	// pubMu orders publishes so a reseed never overwrites a newer value.
	pubMu    sync.Mutex
	mirrored []string

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Mirror. Nothing is subscribed or published until Start.
func New(deps Deps) (*Mirror, error) {
	if deps.Broker == nil {
		return nil, errors.New("mirror: broker is required")
	}
	if deps.Tree == nil {
		return nil, errors.New("mirror: tree is required")
	}
	format := deps.Config.Format
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCBOR {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, deps.Config.Format)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	m := &Mirror{
		cfg:    deps.Config,
		broker: deps.Broker,
		topics: deps.Broker.Topics(),
		tree:   deps.Tree,
		logger: logger.Component("mirror"),
		done:   make(chan struct{}),
	}
	m.cfg.Format = format

	endpoint := &transport.Endpoint{
		Type:   "mqtt",
		Remote: m.topics.Status(),
		Start:  m.preload,
	}
	m.session = session.New(deps.Tree, endpoint, deps.Callbacks,
		session.WithUserlevel(deps.Config.Userlevel),
		session.WithLogger(m.logger),
	)
	return m, nil
}

// Session returns the mirror's session.
func (m *Mirror) Session() *session.Client {
	return m.session
}

// Start subscribes the mirrored leaves, publishes their current values and
// begins forwarding changes until ctx is cancelled or Close is called.
func (m *Mirror) Start(ctx context.Context) error {
	if err := m.session.Open(); err != nil {
		m.session.Close()
		return err
	}
	m.broker.SetOnConnect(m.reseed)

	m.wg.Add(1)
	go m.run(ctx)
	return nil
}

// preload runs once from the session's Open.
func (m *Mirror) preload() error {
	leaves, err := m.leaves()
	if err != nil {
		return err
	}

	for _, uri := range leaves {
		if err := m.session.Subscribe(uri); err != nil {
			return fmt.Errorf("mirroring %s: %w", uri, err)
		}
		m.publishCurrent(uri)
	}
	m.pubMu.Lock()
	m.mirrored = leaves
	m.pubMu.Unlock()

	if !m.cfg.ReadOnly {
		if err := m.broker.SubscribeSets(m.handleSet); err != nil {
			return fmt.Errorf("subscribing %s: %w", m.topics.AllSets(), err)
		}
	}

	m.logger.Info("mirror started",
		"leaves", len(leaves),
		"prefix", m.topics.Status(),
		"format", m.cfg.Format,
		"read_only", m.cfg.ReadOnly,
	)
	return nil
}

// leaves returns the configured URIs, or every leaf in the tree.
func (m *Mirror) leaves() ([]string, error) {
	if len(m.cfg.Subscribe) > 0 {
		return m.cfg.Subscribe, nil
	}
	var out []string
	err := m.session.Browse("", func(info tree.Info) error {
		if info.Kind != tree.KindContainer {
			out = append(out, info.URI)
		}
		return nil
	})
	return out, err
}

// publishCurrent seeds the retained state topic of a parameter.
func (m *Mirror) publishCurrent(uri string) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()

	v, err := m.session.Get(uri)
	if err != nil {
		// Events and unreadable parameters have no state to seed.
		return
	}
	canonical, err := tree.Canonical(uri)
	if err != nil {
		return
	}
	m.publishLocked(updates.Update{URI: canonical, Value: v})
}

// reseed publishes every mirrored parameter again after the broker
// connection comes back. Changes made while it was down were dropped, so
// the retained topics may be stale.
func (m *Mirror) reseed() {
	m.pubMu.Lock()
	leaves := m.mirrored
	m.pubMu.Unlock()

	for _, uri := range leaves {
		select {
		case <-m.done:
			return
		default:
		}
		m.publishCurrent(uri)
	}
	m.logger.Info("mirror state republished", "leaves", len(leaves))
}

func (m *Mirror) run(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-m.session.Updates():
			m.session.Drain(m.publish)
		}
	}
}

func (m *Mirror) publish(u updates.Update) {
	m.pubMu.Lock()
	defer m.pubMu.Unlock()
	m.publishLocked(u)
}

// publishLocked sends one update. A valid value is a parameter state;
// an invalid one is an event occurrence.
func (m *Mirror) publishLocked(u updates.Update) {
	payload, err := m.encode(u.Value)
	if err != nil {
		m.logger.Error("encoding mirrored value failed", "uri", u.URI, "error", err)
		return
	}
	if u.Value.IsValid() {
		err = m.broker.PublishState(u.URI, payload)
	} else {
		err = m.broker.PublishEvent(u.URI, payload)
	}
	if err != nil {
		m.logger.Warn("mirror publish failed", "uri", u.URI, "error", err)
	}
}

func (m *Mirror) encode(v value.Value) ([]byte, error) {
	if m.cfg.Format == FormatCBOR {
		return v.MarshalCBOR()
	}
	return v.MarshalJSON()
}

func (m *Mirror) decode(uri string, payload []byte) (value.Value, error) {
	if m.cfg.Format == FormatCBOR {
		return transport.DecodeCBOR(m.session, uri, payload)
	}
	return transport.DecodeJSON(m.session, uri, payload)
}

// handleSet applies a message received on a set topic. Parameters are
// written with the decoded payload; events are fired and the payload is
// ignored.
func (m *Mirror) handleSet(uri string, payload []byte) error {
	m.session.ObserveRequest("set " + uri)

	err := m.apply(uri, payload)
	if err != nil {
		m.logger.Warn("mirror write rejected",
			"topic", m.topics.Set(uri),
			"code", transport.ErrorCode(err),
			"error", err,
		)
	}
	return err
}

func (m *Mirror) apply(uri string, payload []byte) error {
	if err := transport.CheckWritable(m.session); err != nil {
		return err
	}
	info, err := m.session.Describe(uri)
	if err != nil {
		return err
	}
	switch info.Kind {
	case tree.KindEvent:
		return m.session.Signal(uri)
	case tree.KindParameter:
		v, err := m.decode(info.URI, payload)
		if err != nil {
			return err
		}
		return m.session.Set(uri, v)
	default:
		return fmt.Errorf("%w: %s is a %s", tree.ErrWrongKind, info.URI, info.Kind)
	}
}

// Close stops forwarding, drops the set subscription and closes the
// session. It is safe to call more than once.
func (m *Mirror) Close() {
	m.closeOnce.Do(func() {
		m.broker.SetOnConnect(nil)
		close(m.done)
		m.wg.Wait()
		if !m.cfg.ReadOnly {
			if err := m.broker.UnsubscribeSets(); err != nil {
				m.logger.Debug("mirror unsubscribe failed", "error", err)
			}
		}
		m.session.Close()
	})
}
