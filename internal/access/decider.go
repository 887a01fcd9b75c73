package access

// Request describes a userlevel change awaiting a decision.
type Request struct {
	// Subject identifies the session asking (session ID or remote endpoint).
	Subject string

	// Transport names the connection type the request arrived on.
	Transport string

	// Current is the session's level before the change.
	Current Userlevel

	// Requested is the level asked for.
	Requested Userlevel

	// Credential is the secret supplied with the request (password or token).
	Credential string
}

// Decider approves or denies userlevel changes.
//
// Implementations are called synchronously from the goroutine that handles
// the request and must be safe for concurrent use.
type Decider interface {
	Decide(req Request) bool
}

// DeciderFunc adapts an ordinary function to the Decider interface.
type DeciderFunc func(req Request) bool

// Decide calls f(req).
func (f DeciderFunc) Decide(req Request) bool {
	return f(req)
}

// Chain is a Decider that allows a request when any member allows it.
// An empty Chain denies everything.
type Chain []Decider

// Decide implements Decider.
func (c Chain) Decide(req Request) bool {
	for _, d := range c {
		if d != nil && d.Decide(req) {
			return true
		}
	}
	return false
}

// DenyAll is a Decider that rejects every raise.
var DenyAll Decider = DeciderFunc(func(Request) bool { return false })
