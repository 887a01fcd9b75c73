package transport

// Endpoint is the session.Transport of an in-process client such as the
// MQTT mirror or the telemetry sampler.
type Endpoint struct {
	Type   string
	Remote string

	// Start, when set, is run by the session's Open.
	Start func() error
}

// ConnectionType implements session.Transport.
func (e *Endpoint) ConnectionType() string { return e.Type }

// RemoteEndpoint implements session.Transport.
func (e *Endpoint) RemoteEndpoint() string { return e.Remote }

// Preload implements session.Transport.
func (e *Endpoint) Preload() error {
	if e.Start == nil {
		return nil
	}
	return e.Start()
}
