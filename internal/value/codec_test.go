package value

import (
	"errors"
	"math"
	"testing"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		input   string
		want    Value
		wantErr bool
	}{
		{"bool", KindBool, "false", Bool(false), false},
		{"int", KindInt, "12", Int(12), false},
		{"integral number as float", KindFloat, "12", Float(12), false},
		{"fraction as int", KindInt, "1.25", Value{}, true},
		{"string", KindString, `"abc"`, String("abc"), false},
		{"bytes base64", KindBytes, `"AQI="`, Bytes([]byte{1, 2}), false},
		{"string seq", KindStringSeq, `["a","b"]`, Strings("a", "b"), false},
		{"mixed seq", KindIntSeq, `[1,"b"]`, Value{}, true},
		{"tuple nested", KindTuple, `[1.5,[true]]`, Tuple(Float(1.5), Tuple(Bool(true))), false},
		{"null", KindInt, "null", Value{}, true},
		{"malformed", KindInt, "{", Value{}, true},
		{"trailing garbage", KindInt, "1 garbage", Value{}, true},
		{"two documents", KindInt, "1 2", Value{}, true},
		{"trailing whitespace", KindInt, "7 \n", Int(7), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSON(tt.kind, []byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrTypeMismatch) {
					t.Errorf("DecodeJSON() error = %v, want ErrTypeMismatch", err)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("DecodeJSON() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarshalJSON(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{Bool(true), "true"},
		{Int(5), "5"},
		{Strings("a"), `["a"]`},
		{Bytes([]byte{1, 2}), `"AQI="`},
		{Tuple(Int(1), String("x")), `[1,"x"]`},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := tt.v.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("MarshalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCBOR_PreservesDeclaredKind(t *testing.T) {
	values := []Value{
		Bool(true),
		Int(-3),
		Int(1 << 40),
		Float(2.5),
		String("laser"),
		Bytes([]byte{0xff}),
		Floats(0.5, 1),
		Tuple(Int(7), String("x")),
	}

	for _, v := range values {
		t.Run(v.Kind().String(), func(t *testing.T) {
			data, err := v.MarshalCBOR()
			if err != nil {
				t.Fatalf("MarshalCBOR() error = %v", err)
			}
			got, err := DecodeCBOR(v.Kind(), data)
			if err != nil {
				t.Fatalf("DecodeCBOR() error = %v", err)
			}
			if !got.Equal(v) {
				t.Errorf("DecodeCBOR() = %v, want %v", got, v)
			}
		})
	}
}

func TestNonFiniteFloatsRejected(t *testing.T) {
	nan, err := cborEnc.Marshal(math.NaN())
	if err != nil {
		t.Fatalf("encoding NaN: %v", err)
	}
	inf, err := cborEnc.Marshal([]float64{1, math.Inf(-1)})
	if err != nil {
		t.Fatalf("encoding -Inf: %v", err)
	}

	tests := []struct {
		name   string
		decode func() (Value, error)
	}{
		{"parse nan", func() (Value, error) { return Parse(KindFloat, "nan") }},
		{"parse inf", func() (Value, error) { return Parse(KindFloat, "-Inf") }},
		{"cbor nan", func() (Value, error) { return DecodeCBOR(KindFloat, nan) }},
		{"cbor inf in sequence", func() (Value, error) { return DecodeCBOR(KindFloatSeq, inf) }},
		{"native inf in tuple", func() (Value, error) { return FromNative(KindTuple, []any{math.Inf(1)}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.decode(); !errors.Is(err, ErrRangeOrPrecisionLoss) {
				t.Errorf("error = %v, want ErrRangeOrPrecisionLoss", err)
			}
		})
	}
}

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"float", Float(1.5), true},
		{"nan", Float(math.NaN()), false},
		{"inf in sequence", Floats(0, math.Inf(1)), false},
		{"nan in nested tuple", Tuple(Int(1), Tuple(Float(math.NaN()))), false},
		{"int", Int(math.MaxInt64), true},
		{"invalid", Value{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsFinite(); got != tt.want {
				t.Errorf("IsFinite() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromNativeLike(t *testing.T) {
	like := Tuple(Float(0), Bytes(nil), Tuple(Float(0), String("")))

	tests := []struct {
		name    string
		input   string
		want    Value
		wantErr bool
	}{
		{"element kinds follow template", `[1, "AQI=", [2, "s"]]`, Tuple(Float(1), Bytes([]byte{1, 2}), Tuple(Float(2), String("s"))), false},
		{"other arity is inferred", `[1, "AQI="]`, Tuple(Int(1), String("AQI=")), false},
		{"element mismatch", `[true, "AQI=", [2, "s"]]`, Value{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeJSONLike(like, []byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeJSONLike() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("DecodeJSONLike() = %v, want %v", got, tt.want)
			}
		})
	}

	// Non-tuple templates behave like FromNative.
	got, err := FromNativeLike(Float(0), 3.0)
	if err != nil || !got.Equal(Float(3)) {
		t.Errorf("FromNativeLike(float) = %v, %v", got, err)
	}
}
