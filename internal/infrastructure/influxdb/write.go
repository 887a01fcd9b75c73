package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

// Tag keys on update points.
const (
	TagDevice = "device_id"
	TagURI    = "uri"
	TagKind   = "kind"
)

// UpdateFields returns the field set for a dictionary value, and false for
// kinds that have no time-series representation (strings, bytes,
// sequences and tuples).
//
// Bools are also written as 0/1 under "numeric" so dashboards can graph
// them next to numbers.
func UpdateFields(v value.Value) (map[string]interface{}, bool) {
	switch v.Kind() {
	case value.KindBool:
		b, _ := v.AsBool() //nolint:errcheck // kind checked
		n := 0.0
		if b {
			n = 1
		}
		return map[string]interface{}{"value": b, "numeric": n}, true
	case value.KindInt:
		i, _ := v.AsInt() //nolint:errcheck // kind checked
		return map[string]interface{}{"value": i, "numeric": float64(i)}, true
	case value.KindFloat:
		f, _ := v.AsFloat() //nolint:errcheck // kind checked
		return map[string]interface{}{"value": f, "numeric": f}, true
	}
	return nil, false
}

// NewUpdatePoint builds the point recording that uri held v at ts.
//
// Parameters:
//   - measurement: Measurement name (telemetry.measurement in config.yaml)
//   - deviceID: The device serving the dictionary
//   - uri: Canonical node URI (e.g., "laser1:power")
//   - v: The value; see UpdateFields for supported kinds
//   - ts: When the value was observed
//
// Returns:
//   - *write.Point: The point, or nil
//   - bool: false when v has no time-series representation
func NewUpdatePoint(measurement, deviceID, uri string, v value.Value, ts time.Time) (*write.Point, bool) {
	fields, ok := UpdateFields(v)
	if !ok {
		return nil, false
	}
	tags := map[string]string{
		TagDevice: deviceID,
		TagURI:    uri,
		TagKind:   v.Kind().String(),
	}
	return write.NewPoint(measurement, tags, fields, ts), true
}

// WriteUpdate writes a dictionary update. It reports whether a point was
// queued; unsupported kinds and a closed client are skipped.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.WriteUpdate("dictionary", "laser-bench", "laser1:power", value.Float(0.5), time.Now())
func (c *Client) WriteUpdate(measurement, deviceID, uri string, v value.Value, ts time.Time) bool {
	if !c.IsConnected() {
		return false
	}
	point, ok := NewUpdatePoint(measurement, deviceID, uri, v, ts)
	if !ok {
		return false
	}
	c.writeAPI.WritePoint(point)
	return true
}
