package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
)

// Defaults for unset websocket settings.
const (
	defaultMaxMessageSize = 8192
	defaultPingInterval   = 30 * time.Second
	defaultPongTimeout    = 10 * time.Second

	// sendBufferSize is the per-connection outbound message buffer size.
	sendBufferSize = 256
)

// ErrHubClosed is returned for upgrades attempted after Close.
var ErrHubClosed = errors.New("ws: hub closed")

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// Deps holds the dependencies of a Hub.
type Deps struct {
	Config    config.WebSocketConfig
	Tree      *tree.Tree
	Callbacks *session.Callbacks
	Logger    *logging.Logger

	// Userlevel is the level new sessions start at.
	Userlevel access.Userlevel
}

// Hub accepts websocket connections and tracks their sessions.
type Hub struct {
	tree      *tree.Tree
	callbacks *session.Callbacks
	logger    *logging.Logger
	level     access.Userlevel

	maxMessageSize int64
	pingInterval   time.Duration
	pongWait       time.Duration

	mu     sync.Mutex
	conns  map[*conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewHub creates a Hub. It serves connections through ServeHTTP.
func NewHub(deps Deps) (*Hub, error) {
	if deps.Tree == nil {
		return nil, errors.New("ws: tree is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	h := &Hub{
		tree:           deps.Tree,
		callbacks:      deps.Callbacks,
		logger:         logger.Component("ws"),
		level:          deps.Userlevel,
		maxMessageSize: defaultMaxMessageSize,
		pingInterval:   defaultPingInterval,
		pongWait:       defaultPongTimeout,
		conns:          make(map[*conn]struct{}),
	}
	if deps.Config.MaxMessageSize > 0 {
		h.maxMessageSize = int64(deps.Config.MaxMessageSize)
	}
	if deps.Config.PingInterval > 0 {
		h.pingInterval = time.Duration(deps.Config.PingInterval) * time.Second
	}
	if deps.Config.PongTimeout > 0 {
		h.pongWait = time.Duration(deps.Config.PongTimeout) * time.Second
	}
	return h, nil
}

// ServeHTTP upgrades the request and serves the connection until either
// side closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &conn{
		hub:  h,
		ws:   ws,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
	c.session = session.New(h.tree, c, h.callbacks,
		session.WithUserlevel(h.level),
		session.WithLogger(h.logger),
	)

	if !h.register(c) {
		ws.Close()
		return
	}
	if err := c.session.Open(); err != nil {
		h.logger.Warn("websocket session open failed", "error", err)
		c.shutdown()
	}

	// The goroutines own the slots taken by register and exit at once on
	// a connection that is already shut down.
	c.startUpdates()
	go c.writePump()
	go c.readPump()
}

// register adds c and reserves its three goroutines in the WaitGroup
// under the same lock Close takes, so Close never waits on a partial set.
func (h *Hub) register(c *conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.wg.Add(3)
	h.conns[c] = struct{}{}
	h.logger.Debug("websocket client connected", "clients", len(h.conns))
	return true
}

func (h *Hub) unregister(c *conn) {
	h.mu.Lock()
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client, closes their sessions and waits for
// their goroutines to exit. Later upgrades are refused.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
	h.wg.Wait()
}
