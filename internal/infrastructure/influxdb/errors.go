package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: telemetry storage disabled")

	ErrConnectionFailed = errors.New("influxdb: server unreachable")

	// ErrNotConnected is returned once the client has been closed. The
	// telemetry sink treats it as a failed batch.
	ErrNotConnected = errors.New("influxdb: client closed")

	// ErrWriteFailed wraps batch failures passed to the SetOnError
	// callback. Writes themselves never return an error.
	ErrWriteFailed = errors.New("influxdb: batch write failed")
)
