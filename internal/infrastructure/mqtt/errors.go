package mqtt

import "errors"

// Errors returned by Client. Failures from paho are wrapped in
// ErrConnectionFailed, ErrPublishFailed or ErrSubscribeFailed.
var (
	// ErrNotConnected means the broker is unreachable at the moment; paho
	// keeps reconnecting in the background.
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	ErrConnectionFailed = errors.New("mqtt: broker connection failed")

	// ErrPublishFailed covers state and event publishes the broker did not
	// acknowledge.
	ErrPublishFailed = errors.New("mqtt: publish not acknowledged")

	// ErrSubscribeFailed covers the set-topic subscription and its removal.
	ErrSubscribeFailed = errors.New("mqtt: set subscription failed")

	// ErrPayloadTooLarge is returned for an encoded value over maxPayloadSize.
	ErrPayloadTooLarge = errors.New("mqtt: encoded value too large")
)
