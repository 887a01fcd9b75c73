package ticker

import (
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dictionary/internal/updates"
)

// InfluxSink writes bool and numeric updates as InfluxDB points. Other
// kinds are skipped.
type InfluxSink struct {
	Client      *influxdb.Client
	Measurement string
	DeviceID    string
}

// WriteBatch implements Sink. Points are queued on the client's
// asynchronous write API.
func (s *InfluxSink) WriteBatch(batch []updates.Update) error {
	if s.Client == nil || !s.Client.IsConnected() {
		return influxdb.ErrNotConnected
	}
	for _, u := range batch {
		s.Client.WriteUpdate(s.Measurement, s.DeviceID, u.URI, u.Value, u.Time)
	}
	return nil
}
