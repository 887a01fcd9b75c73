package value

import (
	"bytes"
	"fmt"
	"slices"
)

// Value is an immutable, tagged parameter value.
//
// The zero Value has KindInvalid and carries no payload.
type Value struct {
	kind Kind
	data any
}

// Bool returns a bool Value.
func Bool(b bool) Value { return Value{kind: KindBool, data: b} }

// Int returns an int64 Value.
func Int(i int64) Value { return Value{kind: KindInt, data: i} }

// Float returns a float64 Value.
func Float(f float64) Value { return Value{kind: KindFloat, data: f} }

// String returns a UTF-8 string Value.
func String(s string) Value { return Value{kind: KindString, data: s} }

// Bytes returns a byte-sequence Value. The input is copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, data: bytes.Clone(nonNil(b))} }

// Bools returns a bool sequence Value. The input is copied.
func Bools(v ...bool) Value { return Value{kind: KindBoolSeq, data: slices.Clone(nonNil(v))} }

// Ints returns an int64 sequence Value. The input is copied.
func Ints(v ...int64) Value { return Value{kind: KindIntSeq, data: slices.Clone(nonNil(v))} }

// Floats returns a float64 sequence Value. The input is copied.
func Floats(v ...float64) Value { return Value{kind: KindFloatSeq, data: slices.Clone(nonNil(v))} }

// Strings returns a string sequence Value. The input is copied.
func Strings(v ...string) Value { return Value{kind: KindStringSeq, data: slices.Clone(nonNil(v))} }

// BytesSeq returns a sequence-of-byte-sequences Value. The input is deep copied.
func BytesSeq(v ...[]byte) Value { return Value{kind: KindBytesSeq, data: cloneBytesSeq(v)} }

// Tuple returns a heterogeneous tuple Value. Elements are Values themselves
// and therefore already immutable; only the outer slice is copied.
//
// The wire encodings do not carry element kinds: decoding a tuple with
// FromNative infers them (1 is an Int, "x" a String). Use FromNativeLike
// with the stored tuple to keep them.
func Tuple(elems ...Value) Value { return Value{kind: KindTuple, data: slices.Clone(nonNil(elems))} }

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v carries a payload.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Len returns the element count for sequences and tuples, the byte length
// for Bytes, and 0 for other variants.
func (v Value) Len() int {
	switch d := v.data.(type) {
	case []byte:
		return len(d)
	case []bool:
		return len(d)
	case []int64:
		return len(d)
	case []float64:
		return len(d)
	case []string:
		return len(d)
	case [][]byte:
		return len(d)
	case []Value:
		return len(d)
	}
	return 0
}

func (v Value) mismatch(want Kind) error {
	return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, v.kind, want)
}

// AsBool returns the bool payload or ErrTypeMismatch.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.data.(bool), nil
}

// AsInt returns the int64 payload or ErrTypeMismatch.
func (v Value) AsInt() (int64, error) {
	if v.kind != KindInt {
		return 0, v.mismatch(KindInt)
	}
	return v.data.(int64), nil
}

// AsFloat returns the float64 payload or ErrTypeMismatch.
func (v Value) AsFloat() (float64, error) {
	if v.kind != KindFloat {
		return 0, v.mismatch(KindFloat)
	}
	return v.data.(float64), nil
}

// AsString returns the string payload or ErrTypeMismatch.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.data.(string), nil
}

// AsBytes returns a copy of the byte payload or ErrTypeMismatch.
func (v Value) AsBytes() ([]byte, error) {
	if v.kind != KindBytes {
		return nil, v.mismatch(KindBytes)
	}
	return bytes.Clone(v.data.([]byte)), nil
}

// AsBools returns a copy of the bool sequence or ErrTypeMismatch.
func (v Value) AsBools() ([]bool, error) {
	if v.kind != KindBoolSeq {
		return nil, v.mismatch(KindBoolSeq)
	}
	return slices.Clone(v.data.([]bool)), nil
}

// AsInts returns a copy of the int64 sequence or ErrTypeMismatch.
func (v Value) AsInts() ([]int64, error) {
	if v.kind != KindIntSeq {
		return nil, v.mismatch(KindIntSeq)
	}
	return slices.Clone(v.data.([]int64)), nil
}

// AsFloats returns a copy of the float64 sequence or ErrTypeMismatch.
func (v Value) AsFloats() ([]float64, error) {
	if v.kind != KindFloatSeq {
		return nil, v.mismatch(KindFloatSeq)
	}
	return slices.Clone(v.data.([]float64)), nil
}

// AsStrings returns a copy of the string sequence or ErrTypeMismatch.
func (v Value) AsStrings() ([]string, error) {
	if v.kind != KindStringSeq {
		return nil, v.mismatch(KindStringSeq)
	}
	return slices.Clone(v.data.([]string)), nil
}

// AsBytesSeq returns a deep copy of the byte-sequence sequence or ErrTypeMismatch.
func (v Value) AsBytesSeq() ([][]byte, error) {
	if v.kind != KindBytesSeq {
		return nil, v.mismatch(KindBytesSeq)
	}
	return cloneBytesSeq(v.data.([][]byte)), nil
}

// AsTuple returns a copy of the tuple elements or ErrTypeMismatch.
func (v Value) AsTuple() ([]Value, error) {
	if v.kind != KindTuple {
		return nil, v.mismatch(KindTuple)
	}
	return slices.Clone(v.data.([]Value)), nil
}

// Equal reports whether v and o hold the same variant with equal payloads.
// Sequences compare element-wise; tuples compare by arity, then element-wise.
// Float comparison uses ==, so NaN is never equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}

	switch a := v.data.(type) {
	case nil:
		return o.data == nil
	case bool, int64, float64, string:
		return a == o.data
	case []byte:
		return bytes.Equal(a, o.data.([]byte))
	case []bool:
		return slices.Equal(a, o.data.([]bool))
	case []int64:
		return slices.Equal(a, o.data.([]int64))
	case []float64:
		return slices.Equal(a, o.data.([]float64))
	case []string:
		return slices.Equal(a, o.data.([]string))
	case [][]byte:
		return slices.EqualFunc(a, o.data.([][]byte), bytes.Equal)
	case []Value:
		return slices.EqualFunc(a, o.data.([]Value), Value.Equal)
	}
	return false
}

// Zero returns the zero payload for a kind: false, 0, 0.0, "", empty
// sequences and the empty tuple.
func Zero(k Kind) Value {
	switch k {
	case KindBool:
		return Bool(false)
	case KindInt:
		return Int(0)
	case KindFloat:
		return Float(0)
	case KindString:
		return String("")
	case KindBytes:
		return Bytes(nil)
	case KindBoolSeq:
		return Bools()
	case KindIntSeq:
		return Ints()
	case KindFloatSeq:
		return Floats()
	case KindStringSeq:
		return Strings()
	case KindBytesSeq:
		return BytesSeq()
	case KindTuple:
		return Tuple()
	}
	return Value{}
}

func nonNil[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}

func cloneBytesSeq(in [][]byte) [][]byte {
	out := make([][]byte, len(in))
	for i, b := range in {
		out[i] = bytes.Clone(nonNil(b))
	}
	return out
}
