package transport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: laser1:x", tree.ErrNotFound), CodeNotFound},
		{tree.ErrReadOnly, CodeReadOnly},
		{tree.ErrAccessDenied, CodeAccessDenied},
		{fmt.Errorf("%w: boom", tree.ErrHookRejected), CodeHookRejected},
		{access.ErrInvalidUserlevel, CodeInvalidUserlevel},
		{value.ErrTypeMismatch, CodeBadValue},
		{session.ErrClosed, CodeClosed},
		{fmt.Errorf("%w: unknown command", ErrBadRequest), CodeBadRequest},
		{errors.New("disk on fire"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.want {
				t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func newTestClient(t *testing.T) *session.Client {
	t.Helper()
	tr := tree.New()
	if _, err := tr.DefineParameter("laser1:power", tree.ParameterSpec{Type: value.KindFloat}); err != nil {
		t.Fatalf("DefineParameter() error = %v", err)
	}
	if _, err := tr.DefineParameter("laser1:offset", tree.ParameterSpec{
		Type:    value.KindTuple,
		Initial: value.Tuple(value.Float(1), value.Bytes([]byte{0x01, 0x02}), value.String("x")),
	}); err != nil {
		t.Fatalf("DefineParameter() error = %v", err)
	}
	if _, err := tr.DefineEvent("laser1:fire", tree.EventSpec{}); err != nil {
		t.Fatalf("DefineEvent() error = %v", err)
	}
	c := session.New(tr, &Endpoint{Type: "test"}, nil)
	t.Cleanup(c.Close)
	return c
}

func TestDecoders(t *testing.T) {
	c := newTestClient(t)

	v, err := ParseLiteral(c, "laser1:power", "0.5")
	if err != nil || !v.Equal(value.Float(0.5)) {
		t.Errorf("ParseLiteral() = %v, %v", v, err)
	}
	v, err = DecodeJSON(c, "laser1:power", []byte("2"))
	if err != nil || !v.Equal(value.Float(2)) {
		t.Errorf("DecodeJSON() = %v, %v", v, err)
	}
	v, err = DecodeCBOR(c, "laser1:power", []byte{0xf9, 0x3c, 0x00}) // half-float 1.0
	if err != nil || !v.Equal(value.Float(1)) {
		t.Errorf("DecodeCBOR() = %v, %v", v, err)
	}

	if _, err := ParseLiteral(c, "laser1:fire", "1"); !errors.Is(err, tree.ErrWrongKind) {
		t.Errorf("event literal error = %v, want ErrWrongKind", err)
	}
	if _, err := ParseLiteral(c, "laser1", "1"); !errors.Is(err, tree.ErrWrongKind) {
		t.Errorf("container literal error = %v, want ErrWrongKind", err)
	}
	if _, err := ParseLiteral(c, "laser2:power", "1"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("missing literal error = %v, want ErrNotFound", err)
	}
	if _, err := ParseLiteral(c, "laser1:power", "bright"); !errors.Is(err, value.ErrTypeMismatch) {
		t.Errorf("bad literal error = %v, want ErrTypeMismatch", err)
	}
	if _, err := ParseLiteral(c, "laser1:power", "NaN"); ErrorCode(err) != CodeBadValue {
		t.Errorf("NaN literal error = %v, want %s", err, CodeBadValue)
	}
	if _, err := DecodeJSON(c, "laser1:power", []byte("1 garbage")); ErrorCode(err) != CodeBadValue {
		t.Errorf("trailing data error = %v, want %s", err, CodeBadValue)
	}
}

func TestDecoders_TupleKeepsElementKinds(t *testing.T) {
	c := newTestClient(t)
	stored, err := c.Get("laser1:offset")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	jsonData, err := stored.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	v, err := DecodeJSON(c, "laser1:offset", jsonData)
	if err != nil || !v.Equal(stored) {
		t.Errorf("DecodeJSON(%s) = %v, %v; want %v", jsonData, v, err, stored)
	}

	cborData, err := stored.MarshalCBOR()
	if err != nil {
		t.Fatalf("MarshalCBOR() error = %v", err)
	}
	v, err = DecodeCBOR(c, "laser1:offset", cborData)
	if err != nil || !v.Equal(stored) {
		t.Errorf("DecodeCBOR() = %v, %v; want %v", v, err, stored)
	}

	// A different arity falls back to inferred kinds.
	v, err = DecodeJSON(c, "laser1:offset", []byte(`[2, "y"]`))
	if err != nil || !v.Equal(value.Tuple(value.Int(2), value.String("y"))) {
		t.Errorf("DecodeJSON(other arity) = %v, %v", v, err)
	}
}

func TestEndpoint(t *testing.T) {
	started := false
	e := &Endpoint{Type: "mqtt", Remote: "tcp://broker:1883", Start: func() error {
		started = true
		return nil
	}}
	c := session.New(tree.New(), e, nil)
	defer c.Close()

	if err := c.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !started {
		t.Error("Start not run by Open")
	}
	if c.ConnectionType() != "mqtt" || c.RemoteEndpoint() != "tcp://broker:1883" {
		t.Errorf("endpoint = %s %s", c.ConnectionType(), c.RemoteEndpoint())
	}
	if err := (&Endpoint{}).Preload(); err != nil {
		t.Errorf("Preload() without Start error = %v", err)
	}
}

func TestCheckWritable(t *testing.T) {
	c := newTestClient(t)
	if err := CheckWritable(c); err != nil {
		t.Errorf("CheckWritable() at normal = %v", err)
	}
	if err := c.ChangeUserlevel(access.Readonly, ""); err != nil {
		t.Fatalf("ChangeUserlevel() error = %v", err)
	}
	err := CheckWritable(c)
	if !errors.Is(err, tree.ErrAccessDenied) || ErrorCode(err) != CodeAccessDenied {
		t.Errorf("CheckWritable() at readonly = %v", err)
	}
}
