package ws

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
)

// conn is one websocket peer and its session.
type conn struct {
	hub     *Hub
	ws      *websocket.Conn
	session *session.Client
	send    chan []byte

	done      chan struct{}
	closeOnce sync.Once
	pushOnce  sync.Once
}

// updateParams is the payload of an update notification.
type updateParams struct {
	URI       string `json:"uri"`
	Value     any    `json:"value"`
	Timestamp string `json:"timestamp"`
}

// ConnectionType implements session.Transport.
func (c *conn) ConnectionType() string { return "ws" }

// RemoteEndpoint implements session.Transport.
func (c *conn) RemoteEndpoint() string { return c.ws.RemoteAddr().String() }

// Preload implements session.Transport by starting update delivery.
func (c *conn) Preload() error {
	c.startUpdates()
	return nil
}

// startUpdates runs pushUpdates once. Its WaitGroup slot is taken by
// Hub.register.
func (c *conn) startUpdates() {
	c.pushOnce.Do(func() { go c.pushUpdates() })
}

// shutdown closes the session and the socket. Safe to call from any
// goroutine, any number of times.
func (c *conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.session.Close()
		c.ws.Close()
		c.hub.unregister(c)
	})
}

// readPump reads requests until the peer disconnects.
func (c *conn) readPump() {
	defer c.hub.wg.Done()
	defer c.shutdown()

	wait := c.hub.pingInterval + c.hub.pongWait
	c.ws.SetReadLimit(c.hub.maxMessageSize)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.ws.SetReadDeadline(time.Now().Add(wait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "session", c.session.ID(), "error", err)
			} else {
				c.hub.logger.Debug("websocket closed", "session", c.session.ID(), "error", err)
			}
			return
		}
		// Any client message resets the read deadline.
		//nolint:errcheck // Best-effort deadline reset
		c.ws.SetReadDeadline(time.Now().Add(wait))
		c.handleMessage(message)
	}
}

// writePump writes queued messages and keepalive pings.
func (c *conn) writePump() {
	defer c.hub.wg.Done()

	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message := <-c.send:
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.pongWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.shutdown()
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.ws.SetWriteDeadline(time.Now().Add(c.hub.pongWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown()
				return
			}
		case <-c.done:
			//nolint:errcheck // Best-effort close message
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

// pushUpdates turns queued changes into update notifications. An update
// is popped only once the previous one is in the send buffer, so a slow
// peer leaves changes queued where later writes coalesce into them.
func (c *conn) pushUpdates() {
	defer c.hub.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case <-c.session.Updates():
		}
		for {
			u, err := c.session.Pop()
			if err != nil {
				break
			}
			data, err := json.Marshal(notification{
				JSONRPC: jsonrpcVersion,
				Method:  methodUpdate,
				Params: updateParams{
					URI:       u.URI,
					Value:     u.Value,
					Timestamp: u.Time.UTC().Format(time.RFC3339Nano),
				},
			})
			if err != nil {
				c.hub.logger.Error("failed to marshal update", "session", c.session.ID(), "uri", u.URI, "error", err)
				continue
			}
			if !c.enqueue(data) {
				return
			}
		}
	}
}

// handleMessage dispatches one JSON-RPC request.
func (c *conn) handleMessage(data []byte) {
	c.session.ObserveRequest(redact(data))

	// Batches are not supported.
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		c.replyError(nullID, newError(CodeInvalidRequest, "", "batch requests are not supported"))
		return
	}

	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		c.replyError(nullID, newError(CodeParseError, "", "parse error"))
		return
	}
	if req.JSONRPC != jsonrpcVersion || req.Method == "" {
		id := req.ID
		if len(id) == 0 {
			id = nullID
		}
		c.replyError(id, newError(CodeInvalidRequest, "", "invalid request"))
		return
	}

	fn, ok := methods[req.Method]
	if !ok {
		if !req.isNotification() {
			c.replyError(req.ID, newError(CodeMethodNotFound, "", "method not found: "+req.Method))
		}
		return
	}

	result, err := fn(c.session, req.Params)
	if req.isNotification() {
		return
	}
	if err != nil {
		c.replyError(req.ID, rpcError(err))
		return
	}
	c.reply(response{JSONRPC: jsonrpcVersion, ID: req.ID, Result: result})
}

func (c *conn) replyError(id json.RawMessage, e *Error) {
	c.reply(errorResponse{JSONRPC: jsonrpcVersion, ID: id, Error: e})
}

// reply encodes msg and queues it. A result that cannot be encoded is
// answered with an internal error so the peer is not left waiting.
func (c *conn) reply(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("failed to marshal websocket message", "session", c.session.ID(), "error", err)
		r, ok := msg.(response)
		if !ok {
			return
		}
		data, err = json.Marshal(errorResponse{
			JSONRPC: jsonrpcVersion,
			ID:      r.ID,
			Error:   newError(CodeInternalError, transport.CodeInternal, "result could not be encoded"),
		})
		if err != nil {
			return
		}
	}
	c.enqueue(data)
}

// enqueue hands data to the write pump, waiting while the send buffer is
// full. It reports false once the connection is closed.
func (c *conn) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	}
}
