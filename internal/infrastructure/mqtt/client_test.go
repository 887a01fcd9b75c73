package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "dictd-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		Mirror: config.MirrorConfig{Prefix: "dictd/test"},
	}
}

type recordingLogger struct {
	mu     sync.Mutex
	errors []string
	debugs []string
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(string, ...any) {}

func (l *recordingLogger) Debug(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugs = append(l.debugs, msg)
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "dictd", Password: "secret"}

	opts := buildClientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.ClientID != "dictd-test" {
		t.Errorf("ClientID = %q", opts.ClientID)
	}
	if opts.Username != "dictd" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q", opts.Username, opts.Password)
	}
	if !opts.CleanSession || !opts.AutoReconnect {
		t.Error("expected clean session with auto-reconnect")
	}
	if opts.TLSConfig != nil {
		t.Error("TLS configured without cfg.Broker.TLS")
	}

	cfg.Broker.TLS = true
	opts = buildClientOptions(cfg)
	if opts.Servers[0].Scheme != "ssl" {
		t.Errorf("scheme = %q, want ssl", opts.Servers[0].Scheme)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, Topics{Prefix: "dictd/test"}, "dictd-test")

	if !opts.WillEnabled || opts.WillTopic != "dictd/test/status" {
		t.Fatalf("will = %v %q", opts.WillEnabled, opts.WillTopic)
	}
	if !opts.WillRetained || opts.WillQos != 1 {
		t.Errorf("will retained=%v qos=%d", opts.WillRetained, opts.WillQos)
	}

	var p statusPayload
	if err := json.Unmarshal(opts.WillPayload, &p); err != nil {
		t.Fatalf("will payload: %v", err)
	}
	if p.Status != "offline" || p.Reason != reasonUnexpected || p.ClientID != "dictd-test" {
		t.Errorf("will payload = %+v", p)
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := newClient(testConfig())
	noop := func(string, []byte) error { return nil }

	if c.IsConnected() {
		t.Fatal("IsConnected() = true for unconnected client")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"state of root", c.PublishState("", []byte("1")), tree.ErrInvalidURI},
		{"state of bad uri", c.PublishState("laser1::power", []byte("1")), tree.ErrInvalidURI},
		{"state oversize", c.PublishState("laser1:power", make([]byte, maxPayloadSize+1)), ErrPayloadTooLarge},
		{"state disconnected", c.PublishState("laser1:power", []byte("0.5")), ErrNotConnected},
		{"event disconnected", c.PublishEvent("laser1:fire", []byte("null")), ErrNotConnected},
		{"sets nil handler", c.SubscribeSets(nil), ErrSubscribeFailed},
		{"sets disconnected", c.SubscribeSets(noop), ErrNotConnected},
		{"unsubscribe disconnected", c.UnsubscribeSets(), ErrNotConnected},
		{"health check", c.HealthCheck(context.Background()), ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("error = %v, want %v", tt.err, tt.want)
			}
		})
	}

	if c.setHandler() != nil {
		t.Error("failed SubscribeSets left a handler installed")
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := newClient(testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

func TestDispatchSet(t *testing.T) {
	c := newClient(testConfig())
	logger := &recordingLogger{}
	c.SetLogger(logger)

	var got []string
	c.sets = func(uri string, payload []byte) error {
		switch uri {
		case "laser1:bad":
			return errors.New("bad value")
		case "laser1:boom":
			panic("boom")
		}
		got = append(got, uri+"="+string(payload))
		return nil
	}

	tests := []struct {
		topic   string
		payload string
	}{
		{"dictd/test/set/laser1/power", "0.5"},
		{"dictd/test/set/ready", "true"},
		{"dictd/test/state/laser1/power", "0.1"},
		{"dictd/test/set/", "1"},
		{"dictd/test/set/laser1/bad", "1"},
		{"dictd/test/set/laser1/boom", "1"},
	}
	for _, tt := range tests {
		c.dispatchSet(tt.topic, []byte(tt.payload))
	}

	want := []string{"laser1:power=0.5", "ready=true"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("handler saw %v, want %v", got, want)
	}
	if len(logger.debugs) != 1 || len(logger.errors) != 1 {
		t.Errorf("debugs=%v errors=%v", logger.debugs, logger.errors)
	}

	c.sets = nil
	c.dispatchSet("dictd/test/set/laser1/power", []byte("1"))
	if len(got) != 2 {
		t.Error("message delivered without a handler")
	}
}

func TestSetOnConnect(t *testing.T) {
	c := newClient(testConfig())

	tests := []struct {
		name     string
		callback func()
		want     int
	}{
		{"set", nil, 1},
		{"cleared", nil, 0},
	}
	calls := 0
	tests[0].callback = func() { calls++ }

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = 0
			c.SetOnConnect(tt.callback)
			c.callbackMu.RLock()
			callback := c.onConnect
			c.callbackMu.RUnlock()
			if callback != nil {
				callback()
			}
			if calls != tt.want {
				t.Errorf("callback ran %d times, want %d", calls, tt.want)
			}
		})
	}
}

func TestConnectRefused(t *testing.T) {
	if testing.Short() {
		t.Skip("dials the network")
	}
	cfg := testConfig()
	cfg.Broker.Port = 19998

	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
