package audit

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
)

// Recorder defaults.
const (
	defaultBufferSize = 256
	writeTimeout      = 5 * time.Second
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder turns session callbacks into audit entries. Entries are queued
// and written by a background goroutine so callbacks never wait on the
// database; when the queue is full entries are dropped and counted.
type Recorder struct {
	repo    Repository
	logger  Logger
	entries chan Entry
	done    chan struct{}

	startOnce sync.Once
	stopOnce  sync.Once

	mu      sync.Mutex
	closed  bool
	dropped int
}

// NewRecorder creates a Recorder writing to repo. Call Start before use
// and Close on shutdown.
func NewRecorder(repo Repository, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Recorder{
		repo:    repo,
		logger:  noopLogger{},
		entries: make(chan Entry, bufferSize),
		done:    make(chan struct{}),
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Start launches the writer goroutine.
func (r *Recorder) Start() {
	r.startOnce.Do(func() {
		go r.run()
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.entries {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.repo.Create(ctx, &e); err != nil {
			r.logger.Error("writing audit entry", "action", e.Action, "session", e.SessionID, "error", err)
		}
		cancel()
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.entries)
		r.mu.Unlock()
		r.Start()
		<-r.done
	})
}

// Dropped returns how many entries were discarded because the queue was full.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *Recorder) enqueue(e Entry) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	select {
	case r.entries <- e:
	default:
		r.dropped++
		r.logger.Warn("audit queue full, entry dropped", "action", e.Action, "session", e.SessionID)
	}
}

func entryFor(c *session.Client, action string) Entry {
	return Entry{
		Action:    action,
		SessionID: c.ID(),
		Transport: c.ConnectionType(),
		Remote:    c.RemoteEndpoint(),
		Userlevel: c.Userlevel().String(),
	}
}

// OnConnection matches session.Callbacks.Connection.
func (r *Recorder) OnConnection(c *session.Client, connected bool) {
	action := ActionDisconnect
	if connected {
		action = ActionConnect
	}
	r.enqueue(entryFor(c, action))
}

// OnRequest matches session.Callbacks.Request.
func (r *Recorder) OnRequest(c *session.Client, raw string) {
	e := entryFor(c, ActionRequest)
	e.Request = raw
	r.enqueue(e)
}

// Decider wraps inner so that every userlevel decision is recorded.
func (r *Recorder) Decider(inner access.Decider) access.Decider {
	return access.DeciderFunc(func(req access.Request) bool {
		allowed := inner != nil && inner.Decide(req)
		r.enqueue(Entry{
			Action:    ActionUserlevel,
			SessionID: req.Subject,
			Transport: req.Transport,
			Userlevel: req.Current.String(),
			Details: map[string]any{
				"requested": req.Requested.String(),
				"allowed":   allowed,
			},
		})
		return allowed
	})
}

// Callbacks builds session callbacks that record connections (and, when
// requests is true, every raw request) and audit the userlevel decider.
func (r *Recorder) Callbacks(decider access.Decider, requests bool) *session.Callbacks {
	cb := &session.Callbacks{
		Userlevel:  r.Decider(decider),
		Connection: r.OnConnection,
	}
	if requests {
		cb.Request = r.OnRequest
	}
	return cb
}
