package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dictionary/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

type published struct {
	payload  string
	retained bool
}

// fakeBroker records publishes by state topic and lets tests inject
// writes and reconnects.
type fakeBroker struct {
	topics mqtt.Topics

	mu        sync.Mutex
	messages  map[string][]published
	sets      mqtt.SetHandler
	onConnect func()
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		topics:   mqtt.Topics{Prefix: "bench"},
		messages: make(map[string][]published),
	}
}

func (b *fakeBroker) Topics() mqtt.Topics { return b.topics }

func (b *fakeBroker) record(uri string, payload []byte, retained bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	topic := b.topics.State(uri)
	b.messages[topic] = append(b.messages[topic], published{payload: string(payload), retained: retained})
	return nil
}

func (b *fakeBroker) PublishState(uri string, payload []byte) error {
	return b.record(uri, payload, true)
}

func (b *fakeBroker) PublishEvent(uri string, payload []byte) error {
	return b.record(uri, payload, false)
}

func (b *fakeBroker) SubscribeSets(handler mqtt.SetHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sets = handler
	return nil
}

func (b *fakeBroker) UnsubscribeSets() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sets = nil
	return nil
}

func (b *fakeBroker) SetOnConnect(callback func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onConnect = callback
}

// deliver maps topic to a URI the way the MQTT client does and hands the
// write to the set handler.
func (b *fakeBroker) deliver(topic, payload string) error {
	b.mu.Lock()
	h := b.sets
	b.mu.Unlock()
	if h == nil {
		return errors.New("no set subscription")
	}
	uri, ok := b.topics.URIFromSet(topic)
	if !ok {
		return errors.New("not a set topic")
	}
	return h(uri, []byte(payload))
}

// reconnect runs the connect callback, if any, and reports whether one ran.
func (b *fakeBroker) reconnect() bool {
	b.mu.Lock()
	callback := b.onConnect
	b.messages = make(map[string][]published)
	b.mu.Unlock()
	if callback == nil {
		return false
	}
	callback()
	return true
}

func (b *fakeBroker) last(topic string) (published, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.messages[topic]
	if len(msgs) == 0 {
		return published{}, false
	}
	return msgs[len(msgs)-1], true
}

func (b *fakeBroker) subscribed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sets != nil
}

// waitFor blocks until the last message on topic carries payload.
func (b *fakeBroker) waitFor(t *testing.T, topic, payload string) published {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msg, ok := b.last(topic); ok && msg.payload == payload {
			return msg
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no publish of %s to %s", payload, topic)
	return published{}
}

func newLaserTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New()
	params := []struct {
		uri  string
		spec tree.ParameterSpec
	}{
		{"laser1:enable", tree.ParameterSpec{Type: value.KindBool, WriteLevel: access.Service}},
		{"laser1:power", tree.ParameterSpec{Type: value.KindFloat, Initial: value.Float(0.5)}},
		{"laser1:label", tree.ParameterSpec{Type: value.KindString, Initial: value.String("bench")}},
	}
	for _, p := range params {
		if _, err := tr.DefineParameter(p.uri, p.spec); err != nil {
			t.Fatalf("DefineParameter(%q) error = %v", p.uri, err)
		}
	}
	if _, err := tr.DefineEvent("laser1:fire", tree.EventSpec{}); err != nil {
		t.Fatalf("DefineEvent() error = %v", err)
	}
	return tr
}

func startMirror(t *testing.T, tr *tree.Tree, b *fakeBroker, cfg config.MirrorConfig) *Mirror {
	t.Helper()
	m, err := New(Deps{Config: cfg, Broker: b, Tree: tr})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestStartSeedsRetainedState(t *testing.T) {
	b := newFakeBroker()
	startMirror(t, newLaserTree(t), b, config.MirrorConfig{Userlevel: access.Normal})

	tests := []struct {
		topic string
		want  string
	}{
		{"bench/state/laser1/enable", "false"},
		{"bench/state/laser1/power", "0.5"},
		{"bench/state/laser1/label", `"bench"`},
	}
	for _, tt := range tests {
		msg, ok := b.last(tt.topic)
		if !ok {
			t.Errorf("%s not published", tt.topic)
			continue
		}
		if msg.payload != tt.want || !msg.retained {
			t.Errorf("%s = %+v, want retained %s", tt.topic, msg, tt.want)
		}
	}
	if _, ok := b.last("bench/state/laser1/fire"); ok {
		t.Error("event seeded a state topic")
	}
	if !b.subscribed() {
		t.Error("set topics not subscribed")
	}
}

func TestChangesArePublished(t *testing.T) {
	tr := newLaserTree(t)
	b := newFakeBroker()
	startMirror(t, tr, b, config.MirrorConfig{Userlevel: access.Normal, Subscribe: []string{"laser1/power", "laser1:fire"}})

	if err := tr.Update("laser1:power", value.Float(0.75)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	msg := b.waitFor(t, "bench/state/laser1/power", "0.75")
	if !msg.retained {
		t.Errorf("power = %+v, want retained 0.75", msg)
	}

	if err := tr.Signal("laser1:fire", access.Normal); err != nil {
		t.Fatalf("Signal() error = %v", err)
	}
	msg = b.waitFor(t, "bench/state/laser1/fire", "null")
	if msg.retained {
		t.Error("event publish retained")
	}

	if _, ok := b.last("bench/state/laser1/label"); ok {
		t.Error("unmirrored leaf published")
	}
}

func TestInboundWrites(t *testing.T) {
	tr := newLaserTree(t)
	b := newFakeBroker()
	startMirror(t, tr, b, config.MirrorConfig{Userlevel: access.Normal})

	tests := []struct {
		name    string
		topic   string
		payload string
		wantErr error
	}{
		{"float", "bench/set/laser1/power", "0.9", nil},
		{"event", "bench/set/laser1/fire", "", nil},
		{"wrong type", "bench/set/laser1/power", `"hot"`, value.ErrTypeMismatch},
		{"write level", "bench/set/laser1/enable", "true", tree.ErrAccessDenied},
		{"missing", "bench/set/laser1/nope", "1", tree.ErrNotFound},
		{"container", "bench/set/laser1", "1", tree.ErrWrongKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := b.deliver(tt.topic, tt.payload)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("deliver() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	got, err := tr.Read("laser1:power", access.Normal)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.Equal(value.Float(0.9)) {
		t.Errorf("laser1:power = %v, want 0.9", got)
	}
}

func TestReadOnlyMirror(t *testing.T) {
	b := newFakeBroker()
	startMirror(t, newLaserTree(t), b, config.MirrorConfig{Userlevel: access.Normal, ReadOnly: true})

	if b.subscribed() {
		t.Error("read-only mirror subscribed to set topics")
	}
}

func TestReadonlyUserlevelRejectsWrites(t *testing.T) {
	b := newFakeBroker()
	startMirror(t, newLaserTree(t), b, config.MirrorConfig{Userlevel: access.Readonly})

	if err := b.deliver("bench/set/laser1/power", "1"); !errors.Is(err, tree.ErrAccessDenied) {
		t.Errorf("deliver() error = %v, want ErrAccessDenied", err)
	}
}

func TestCBORFormat(t *testing.T) {
	tr := newLaserTree(t)
	b := newFakeBroker()
	startMirror(t, tr, b, config.MirrorConfig{Userlevel: access.Normal, Format: FormatCBOR})

	msg, ok := b.last("bench/state/laser1/power")
	if !ok {
		t.Fatal("power not published")
	}
	var f float64
	if err := cbor.Unmarshal([]byte(msg.payload), &f); err != nil || f != 0.5 {
		t.Errorf("cbor payload = %v (%v), want 0.5", f, err)
	}

	payload, err := cbor.Marshal(0.25)
	if err != nil {
		t.Fatalf("cbor.Marshal() error = %v", err)
	}
	if err := b.deliver("bench/set/laser1/power", string(payload)); err != nil {
		t.Fatalf("deliver() error = %v", err)
	}
	got, err := tr.Read("laser1:power", access.Normal)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !got.Equal(value.Float(0.25)) {
		t.Errorf("laser1:power = %v, want 0.25", got)
	}
}

func TestReconnectReseedsRetainedState(t *testing.T) {
	tr := newLaserTree(t)
	b := newFakeBroker()
	m := startMirror(t, tr, b, config.MirrorConfig{Userlevel: access.Normal})

	// Lost while the broker was unreachable.
	if err := tr.Update("laser1:power", value.Float(0.8)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	b.waitFor(t, "bench/state/laser1/power", "0.8")

	if !b.reconnect() {
		t.Fatal("mirror registered no connect callback")
	}

	tests := []struct {
		topic string
		want  string
	}{
		{"bench/state/laser1/enable", "false"},
		{"bench/state/laser1/power", "0.8"},
		{"bench/state/laser1/label", `"bench"`},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			msg, ok := b.last(tt.topic)
			if !ok || msg.payload != tt.want || !msg.retained {
				t.Errorf("%s = %+v (%v), want retained %s", tt.topic, msg, ok, tt.want)
			}
		})
	}
	if _, ok := b.last("bench/state/laser1/fire"); ok {
		t.Error("reconnect published an event")
	}

	m.Close()
	if b.reconnect() {
		t.Error("connect callback still registered after Close")
	}
}

func TestTupleWritesKeepElementKinds(t *testing.T) {
	tr := newLaserTree(t)
	initial := value.Tuple(value.Float(1), value.String("x"))
	if _, err := tr.DefineParameter("laser1:offset", tree.ParameterSpec{Type: value.KindTuple, Initial: initial}); err != nil {
		t.Fatalf("DefineParameter() error = %v", err)
	}
	b := newFakeBroker()
	startMirror(t, tr, b, config.MirrorConfig{Userlevel: access.Normal})

	if err := b.deliver("bench/set/laser1/offset", `[2, "y"]`); err != nil {
		t.Fatalf("deliver() error = %v", err)
	}
	got, err := tr.Read("laser1:offset", access.Normal)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if want := value.Tuple(value.Float(2), value.String("y")); !got.Equal(want) {
		t.Errorf("laser1:offset = %v, want %v", got, want)
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	tr := newLaserTree(t)
	b := newFakeBroker()
	m := startMirror(t, tr, b, config.MirrorConfig{Userlevel: access.Normal})

	m.Close()
	m.Close()

	if b.subscribed() {
		t.Error("set topics still subscribed after Close")
	}
	info, err := tr.Describe("laser1:power")
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if info.Subscribers != 0 {
		t.Errorf("subscribers = %d, want 0", info.Subscribers)
	}
}

func TestNew_Validation(t *testing.T) {
	tr := tree.New()
	b := newFakeBroker()

	if _, err := New(Deps{Tree: tr}); err == nil {
		t.Error("New() without broker should fail")
	}
	if _, err := New(Deps{Broker: b}); err == nil {
		t.Error("New() without tree should fail")
	}
	if _, err := New(Deps{Broker: b, Tree: tr, Config: config.MirrorConfig{Format: "xml"}}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("New() error = %v, want ErrUnknownFormat", err)
	}
}
