package session

import "github.com/nerrad567/gray-logic-dictionary/internal/access"

// Callbacks are the policy hooks installed once at startup and shared by
// every Client. Any field may be nil.
//
// All callbacks run synchronously on the goroutine performing the
// operation that triggered them.
type Callbacks struct {
	// Userlevel decides requests to raise a Client's userlevel. When nil,
	// every raise is rejected.
	Userlevel access.Decider

	// Connection is told when a Client opens (connected=true) and closes.
	Connection func(c *Client, connected bool)

	// Request observes requests as received by a transport, for auditing.
	// Credentials are masked before it sees them.
	Request func(c *Client, raw string)
}

func (cb *Callbacks) decider() access.Decider {
	if cb == nil || cb.Userlevel == nil {
		return access.DenyAll
	}
	return cb.Userlevel
}

func (cb *Callbacks) connection(c *Client, connected bool) {
	if cb != nil && cb.Connection != nil {
		cb.Connection(c, connected)
	}
}

func (cb *Callbacks) request(c *Client, raw string) {
	if cb != nil && cb.Request != nil {
		cb.Request(c, raw)
	}
}
