// Package influxdb provides InfluxDB connectivity for dictd.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, health monitoring and a point shape for dictionary updates.
//
// # Purpose
//
// The telemetry session samples subscribed parameters and writes them here,
// one point per update:
//
//	measurement: telemetry.measurement (default "dictionary")
//	tags:        device_id, uri, kind
//	fields:      value (native type), numeric (float64)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteUpdate("dictionary", "laser-bench", "laser1:power", value.Float(0.5), time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are reported via the
// SetOnError callback. Connection and health check errors are returned directly.
package influxdb
