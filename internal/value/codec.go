package value

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"slices"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error

	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("value: CBOR encoder initialisation failed: " + err.Error())
	}

	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("value: CBOR decoder initialisation failed: " + err.Error())
	}
}

// Native returns the payload as plain Go data: bool, int64, float64,
// string, []byte, the typed slices for sequences, and []any for tuples.
// The result is a copy and may be modified by the caller.
func (v Value) Native() any {
	switch d := v.data.(type) {
	case []byte:
		return bytes.Clone(d)
	case [][]byte:
		return cloneBytesSeq(d)
	case []Value:
		out := make([]any, len(d))
		for i, e := range d {
			out[i] = e.Native()
		}
		return out
	case []bool:
		return slices.Clone(d)
	case []int64:
		return slices.Clone(d)
	case []float64:
		return slices.Clone(d)
	case []string:
		return slices.Clone(d)
	}
	return v.data
}

// MarshalJSON encodes the payload as natural JSON. Bytes are base64
// strings (encoding/json convention) and tuples are arrays.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// MarshalCBOR encodes the payload with deterministic CBOR.
func (v Value) MarshalCBOR() ([]byte, error) {
	return cborEnc.Marshal(v.Native())
}

// DecodeJSON decodes a JSON document into a Value of kind k.
// Tuple element kinds are inferred from the JSON types.
func DecodeJSON(k Kind, data []byte) (Value, error) {
	raw, err := decodeJSONDocument(k, data)
	if err != nil {
		return Value{}, err
	}
	return FromNative(k, raw)
}

// DecodeJSONLike decodes a JSON document into a Value of the same kind as
// like. See FromNativeLike.
func DecodeJSONLike(like Value, data []byte) (Value, error) {
	raw, err := decodeJSONDocument(like.kind, data)
	if err != nil {
		return Value{}, err
	}
	return FromNativeLike(like, raw)
}

// decodeJSONDocument decodes exactly one JSON value; trailing data fails.
func decodeJSONDocument(k Kind, data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrTypeMismatch, k, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: decoding %s: trailing data", ErrTypeMismatch, k)
	}
	return raw, nil
}

// DecodeCBOR decodes a CBOR item into a Value of kind k.
func DecodeCBOR(k Kind, data []byte) (Value, error) {
	var raw any
	if err := cborDec.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("%w: decoding %s: %w", ErrTypeMismatch, k, err)
	}
	return FromNative(k, raw)
}

// DecodeCBORLike decodes a CBOR item into a Value of the same kind as
// like. See FromNativeLike.
func DecodeCBORLike(like Value, data []byte) (Value, error) {
	var raw any
	if err := cborDec.Unmarshal(data, &raw); err != nil {
		return Value{}, fmt.Errorf("%w: decoding %s: %w", ErrTypeMismatch, like.kind, err)
	}
	return FromNativeLike(like, raw)
}

// FromNativeLike is FromNative(like.Kind(), raw), except that tuple
// elements take the kinds of the corresponding elements of like, so a
// tuple read from the wire and written back keeps its element kinds.
// When the arity differs the element kinds are inferred.
func FromNativeLike(like Value, raw any) (Value, error) {
	if like.kind != KindTuple {
		return FromNative(like.kind, raw)
	}
	template, _ := like.data.([]Value)
	return tupleFromNative(template, raw)
}

// FromNative builds a Value of kind k from decoded Go data (the output of
// encoding/json with UseNumber, CBOR, or YAML). Integral JSON numbers are
// accepted for float kinds; fractional numbers are never accepted for int
// kinds. Strings are accepted for byte kinds as base64.
func FromNative(k Kind, raw any) (Value, error) {
	switch k {
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, nativeMismatch(k, raw)
		}
		return Bool(b), nil
	case KindInt:
		i, err := nativeInt(raw)
		if err != nil {
			return Value{}, err
		}
		return Int(i), nil
	case KindFloat:
		f, err := nativeFloat(raw)
		if err != nil {
			return Value{}, err
		}
		return Float(f), nil
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, nativeMismatch(k, raw)
		}
		return String(s), nil
	case KindBytes:
		b, err := nativeBytes(raw)
		if err != nil {
			return Value{}, err
		}
		return Bytes(b), nil
	case KindTuple:
		return tupleFromNative(nil, raw)
	}

	if !k.IsSequence() {
		return Value{}, fmt.Errorf("%w: %s", ErrInvalidKind, k)
	}

	items, ok := nativeList(raw)
	if !ok {
		return Value{}, nativeMismatch(k, raw)
	}
	elems := make([]Value, len(items))
	for i, item := range items {
		e, err := FromNative(k.Elem(), item)
		if err != nil {
			return Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		elems[i] = e
	}
	return sequenceOf(k, elems), nil
}

// tupleFromNative decodes a tuple. Elements follow template when it has the
// same arity and are inferred otherwise.
func tupleFromNative(template []Value, raw any) (Value, error) {
	items, ok := nativeList(raw)
	if !ok {
		return Value{}, nativeMismatch(KindTuple, raw)
	}
	if len(template) != len(items) {
		template = nil
	}
	elems := make([]Value, len(items))
	for i, item := range items {
		var (
			e   Value
			err error
		)
		if template != nil {
			e, err = FromNativeLike(template[i], item)
		} else {
			e, err = inferNative(item)
		}
		if err != nil {
			return Value{}, fmt.Errorf("tuple element %d: %w", i, err)
		}
		elems[i] = e
	}
	return Tuple(elems...), nil
}

func sequenceOf(k Kind, elems []Value) Value {
	switch k {
	case KindBoolSeq:
		out := make([]bool, len(elems))
		for i, e := range elems {
			out[i] = e.data.(bool)
		}
		return Value{kind: k, data: out}
	case KindIntSeq:
		out := make([]int64, len(elems))
		for i, e := range elems {
			out[i] = e.data.(int64)
		}
		return Value{kind: k, data: out}
	case KindFloatSeq:
		out := make([]float64, len(elems))
		for i, e := range elems {
			out[i] = e.data.(float64)
		}
		return Value{kind: k, data: out}
	case KindStringSeq:
		out := make([]string, len(elems))
		for i, e := range elems {
			out[i] = e.data.(string)
		}
		return Value{kind: k, data: out}
	}
	out := make([][]byte, len(elems))
	for i, e := range elems {
		out[i] = e.data.([]byte)
	}
	return Value{kind: KindBytesSeq, data: out}
}

// inferNative picks a kind for an untyped tuple element.
func inferNative(raw any) (Value, error) {
	switch d := raw.(type) {
	case bool:
		return Bool(d), nil
	case string:
		return String(d), nil
	case []byte:
		return Bytes(d), nil
	case json.Number:
		if i, err := d.Int64(); err == nil {
			return Int(i), nil
		}
		return FromNative(KindFloat, d)
	case int, int64, uint64:
		return FromNative(KindInt, d)
	case float32, float64:
		return FromNative(KindFloat, d)
	case []any:
		return FromNative(KindTuple, d)
	}
	return Value{}, fmt.Errorf("%w: cannot infer kind of %T", ErrTypeMismatch, raw)
}

func nativeInt(raw any) (int64, error) {
	switch d := raw.(type) {
	case json.Number:
		i, err := d.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not an int", ErrTypeMismatch, d)
		}
		return i, nil
	case int:
		return int64(d), nil
	case int64:
		return d, nil
	case uint64:
		if d > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int", ErrRangeOrPrecisionLoss, d)
		}
		return int64(d), nil
	}
	return 0, nativeMismatch(KindInt, raw)
}

// nativeFloat converts raw to a finite float64.
func nativeFloat(raw any) (float64, error) {
	f, err := nativeAnyFloat(raw)
	if err != nil {
		return 0, err
	}
	if !isFinite(f) {
		return 0, fmt.Errorf("%w: %v is not finite", ErrRangeOrPrecisionLoss, f)
	}
	return f, nil
}

func nativeAnyFloat(raw any) (float64, error) {
	switch d := raw.(type) {
	case json.Number:
		f, err := d.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s is not a float", ErrTypeMismatch, d)
		}
		return f, nil
	case float64:
		return d, nil
	case float32:
		return float64(d), nil
	case int:
		return float64(d), nil
	case int64:
		return intToFloat(d)
	case uint64:
		if d > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d as float", ErrRangeOrPrecisionLoss, d)
		}
		return intToFloat(int64(d))
	}
	return 0, nativeMismatch(KindFloat, raw)
}

func nativeBytes(raw any) ([]byte, error) {
	switch d := raw.(type) {
	case []byte:
		return d, nil
	case string:
		b, err := base64.StdEncoding.DecodeString(d)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid base64", ErrTypeMismatch)
		}
		return b, nil
	}
	return nil, nativeMismatch(KindBytes, raw)
}

func nativeList(raw any) ([]any, bool) {
	if items, ok := raw.([]any); ok {
		return items, true
	}
	return nil, false
}

func nativeMismatch(k Kind, raw any) error {
	return fmt.Errorf("%w: %T is not %s", ErrTypeMismatch, raw, k)
}
