// Package session provides the client context shared by every transport.
//
// A transport (CLI connection, HTTP request, websocket peer, MQTT mirror,
// periodic ticker) creates one Client per peer, decodes requests into
// (operation, URI, value) calls on it and encodes the results back onto
// its own wire. The Client applies the peer's userlevel, keeps track of
// subscriptions, and receives change notifications into a coalescing
// update queue that the transport drains on its own schedule.
//
// # Lifecycle
//
//	c := session.New(tree, transport, callbacks)
//	c.Open()        // connect callback, then transport.Preload()
//	...             // Get / Set / Signal / Subscribe / Drain
//	c.Close()       // invalidate weak refs, unsubscribe, discard queue,
//	                // disconnect callback
//
// The tree holds only weak references to a Client, so closing a Client
// while another goroutine is writing a parameter it subscribed to is safe:
// the write completes and the closed Client is skipped.
package session
