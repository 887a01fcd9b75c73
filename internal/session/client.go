package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/updates"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
	"github.com/nerrad567/gray-logic-dictionary/internal/weakref"
)

// ErrClosed is returned by operations on a Client after Close.
var ErrClosed = errors.New("session: closed")

// Transport describes the connection a Client serves.
type Transport interface {
	// ConnectionType names the transport, e.g. "cli" or "websocket".
	ConnectionType() string

	// RemoteEndpoint identifies the peer for diagnostics.
	RemoteEndpoint() string

	// Preload is called once by Open to start transport-specific I/O.
	Preload() error
}

// Logger defines the logging interface used by the Client.
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

// Client is one peer's view of the dictionary. All methods are safe for
// concurrent use.
type Client struct {
	id        string
	tree      *tree.Tree
	transport Transport
	callbacks *Callbacks
	anchor    *weakref.Anchor[tree.Subscriber]
	queue     *updates.Queue
	logger    Logger

	mu            sync.Mutex
	level         access.Userlevel
	subscriptions *orderedmap.OrderedMap[string, struct{}]
	opened        bool
	closed        bool
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	id     string
	level  access.Userlevel
	clock  clock.Clock
	logger Logger
}

// WithUserlevel sets the starting userlevel (default Normal).
func WithUserlevel(l access.Userlevel) Option {
	return func(o *clientOptions) { o.level = l }
}

// WithID overrides the generated session ID.
func WithID(id string) Option {
	return func(o *clientOptions) { o.id = id }
}

// WithClock sets the time source for update timestamps.
func WithClock(c clock.Clock) Option {
	return func(o *clientOptions) { o.clock = c }
}

// WithLogger sets the Client's logger.
func WithLogger(l Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// New creates a Client bound to t and serving transport. callbacks may be
// nil. The Client is not yet open.
func New(t *tree.Tree, transport Transport, callbacks *Callbacks, opts ...Option) *Client {
	o := clientOptions{
		id:     "ses-" + uuid.NewString()[:8],
		level:  access.Normal,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	var qopts []updates.Option
	if o.clock != nil {
		qopts = append(qopts, updates.WithClock(o.clock))
	}

	c := &Client{
		id:            o.id,
		tree:          t,
		transport:     transport,
		callbacks:     callbacks,
		queue:         updates.NewQueue(qopts...),
		logger:        o.logger,
		level:         o.level,
		subscriptions: orderedmap.New[string, struct{}](),
	}
	c.anchor = weakref.New[tree.Subscriber](c)
	return c
}

// ID returns the session identifier.
func (c *Client) ID() string { return c.id }

// ConnectionType returns the transport's name.
func (c *Client) ConnectionType() string { return c.transport.ConnectionType() }

// RemoteEndpoint returns the transport's peer description.
func (c *Client) RemoteEndpoint() string { return c.transport.RemoteEndpoint() }

// Userlevel returns the current userlevel.
func (c *Client) Userlevel() access.Userlevel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level
}

// EffectiveUserlevel returns the level compared against node thresholds.
func (c *Client) EffectiveUserlevel() access.Userlevel {
	return access.Effective(c.Userlevel())
}

// ReadOnly reports whether the Client is at the Readonly level. Transports
// use it to decide which operations to offer.
func (c *Client) ReadOnly() bool {
	return c.Userlevel() == access.Readonly
}

// ChangeUserlevel moves the Client to requested. Lowering is always
// allowed; raising is put to the installed Decider with credential.
// A rejected or invalid request returns access.ErrInvalidUserlevel and
// leaves the level unchanged.
func (c *Client) ChangeUserlevel(requested access.Userlevel, credential string) error {
	if !requested.IsValid() {
		return fmt.Errorf("%w: %d", access.ErrInvalidUserlevel, int(requested))
	}
	if err := c.checkOpen(); err != nil {
		return err
	}

	current := c.Userlevel()
	if requested > current {
		req := access.Request{
			Subject:    c.id,
			Transport:  c.ConnectionType(),
			Current:    current,
			Requested:  requested,
			Credential: credential,
		}
		if !c.callbacks.decider().Decide(req) {
			c.logger.Warn("userlevel change rejected", "session", c.id, "from", current, "to", requested)
			return fmt.Errorf("%w: %s -> %s rejected", access.ErrInvalidUserlevel, current, requested)
		}
	}

	c.mu.Lock()
	c.level = requested
	c.mu.Unlock()

	c.logger.Info("userlevel changed", "session", c.id, "from", current, "to", requested)
	return nil
}

func (c *Client) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Get reads the parameter at uri.
func (c *Client) Get(uri string) (value.Value, error) {
	if err := c.checkOpen(); err != nil {
		return value.Value{}, err
	}
	return c.tree.Read(uri, c.EffectiveUserlevel())
}

// Set writes v to the parameter at uri.
func (c *Client) Set(uri string, v value.Value) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.tree.Write(uri, v, c.EffectiveUserlevel())
}

// Signal fires the event at uri.
func (c *Client) Signal(uri string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	return c.tree.Signal(uri, c.EffectiveUserlevel())
}

// Describe returns a snapshot of the node at uri.
func (c *Client) Describe(uri string) (tree.Info, error) {
	if err := c.checkOpen(); err != nil {
		return tree.Info{}, err
	}
	return c.tree.Describe(uri)
}

// Browse walks the subtree at root. Parameters the Client may not read
// are reported without their value.
func (c *Client) Browse(root string, visit func(tree.Info) error) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	level := c.EffectiveUserlevel()
	return c.tree.Browse(root, func(info tree.Info) error {
		if info.Kind == tree.KindParameter && !access.Permits(level, info.ReadLevel) {
			info.Value = value.Value{}
		}
		return visit(info)
	})
}

// Subscribe starts delivery of changes to the leaf at uri.
func (c *Client) Subscribe(uri string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	canonical, err := c.tree.Subscribe(uri, c.anchor.Ref())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.subscriptions.Set(canonical, struct{}{})
	c.mu.Unlock()
	return nil
}

// Unsubscribe stops delivery of changes from the leaf at uri. Pending
// updates already queued for it are still delivered.
func (c *Client) Unsubscribe(uri string) error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	canonical, err := c.tree.Unsubscribe(uri, c.anchor.Ref().ID())
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.subscriptions.Delete(canonical)
	c.mu.Unlock()
	return nil
}

// Subscriptions lists subscribed URIs in subscription order.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, c.subscriptions.Len())
	for pair := c.subscriptions.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Notify implements tree.Subscriber.
func (c *Client) Notify(uri string, v value.Value) {
	c.queue.Push(uri, v)
}

// Updates signals that at least one update may be pending.
func (c *Client) Updates() <-chan struct{} {
	return c.queue.Ready()
}

// Pop removes the oldest pending update; updates.ErrEmpty when none.
func (c *Client) Pop() (updates.Update, error) {
	return c.queue.PopFront()
}

// Drain delivers every pending update to fn in order.
func (c *Client) Drain(fn func(updates.Update)) int {
	return c.queue.Drain(fn)
}

// Pending returns the number of queued updates.
func (c *Client) Pending() int {
	return c.queue.Len()
}

// ObserveRequest passes a raw request to the Request callback. Callers
// mask credentials first; the callback may persist what it receives.
func (c *Client) ObserveRequest(raw string) {
	c.callbacks.request(c, raw)
}

// Open announces the Client and starts its transport. It runs at most
// once; later calls return nil.
func (c *Client) Open() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.opened {
		c.mu.Unlock()
		return nil
	}
	c.opened = true
	c.mu.Unlock()

	c.callbacks.connection(c, true)
	c.logger.Debug("session opened", "session", c.id, "transport", c.ConnectionType(), "remote", c.RemoteEndpoint())

	if err := c.transport.Preload(); err != nil {
		return fmt.Errorf("preloading %s session: %w", c.ConnectionType(), err)
	}
	return nil
}

// Close tears the Client down. After Close returns the tree will not
// deliver to it again. Close is idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	opened := c.opened
	c.mu.Unlock()

	// Waits for any in-flight Notify to finish.
	c.anchor.Invalidate()

	id := c.anchor.Ref().ID()
	for _, uri := range c.Subscriptions() {
		if _, err := c.tree.Unsubscribe(uri, id); err != nil {
			c.logger.Debug("unsubscribe on close failed", "session", c.id, "uri", uri, "error", err)
		}
	}

	c.mu.Lock()
	c.subscriptions = orderedmap.New[string, struct{}]()
	c.mu.Unlock()
	c.queue.Clear()

	if opened {
		c.callbacks.connection(c, false)
	}
	c.logger.Debug("session closed", "session", c.id)
}
