package value

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// String formats v for display. Scalars use their natural text form,
// strings are quoted, byte payloads are hex encoded, sequences render as
// [a, b] and tuples as (a, b).
func (v Value) String() string {
	switch d := v.data.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(d)
	case int64:
		return strconv.FormatInt(d, 10)
	case float64:
		return strconv.FormatFloat(d, 'g', -1, 64)
	case string:
		return strconv.Quote(d)
	case []byte:
		return hex.EncodeToString(d)
	case []bool:
		return joinFormatted(len(d), "[", "]", func(i int) string { return strconv.FormatBool(d[i]) })
	case []int64:
		return joinFormatted(len(d), "[", "]", func(i int) string { return strconv.FormatInt(d[i], 10) })
	case []float64:
		return joinFormatted(len(d), "[", "]", func(i int) string { return strconv.FormatFloat(d[i], 'g', -1, 64) })
	case []string:
		return joinFormatted(len(d), "[", "]", func(i int) string { return strconv.Quote(d[i]) })
	case [][]byte:
		return joinFormatted(len(d), "[", "]", func(i int) string { return hex.EncodeToString(d[i]) })
	case []Value:
		return joinFormatted(len(d), "(", ")", func(i int) string { return d[i].String() })
	}
	return fmt.Sprintf("%v", v.data)
}

func joinFormatted(n int, open, closing string, elem func(int) string) string {
	var b strings.Builder
	b.WriteString(open)
	for i := range n {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(elem(i))
	}
	b.WriteString(closing)
	return b.String()
}

// Parse converts a text literal into a Value of kind k.
//
// Scalars use Go literal syntax: true/false, integers in any base accepted
// by strconv.ParseInt with base 0, floats, raw strings and hex for bytes
// (an optional 0x prefix is ignored). Sequences and tuples are given as
// JSON arrays, e.g. [1, 2, 3].
func Parse(k Kind, text string) (Value, error) {
	switch k {
	case KindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a bool", ErrTypeMismatch, text)
		}
		return Bool(b), nil
	case KindInt:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 0, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not an int", ErrTypeMismatch, text)
		}
		return Int(i), nil
	case KindFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not a float", ErrTypeMismatch, text)
		}
		if !isFinite(f) {
			return Value{}, fmt.Errorf("%w: %q is not finite", ErrRangeOrPrecisionLoss, text)
		}
		return Float(f), nil
	case KindString:
		return String(text), nil
	case KindBytes:
		b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(text), "0x"))
		if err != nil {
			return Value{}, fmt.Errorf("%w: %q is not hex", ErrTypeMismatch, text)
		}
		return Bytes(b), nil
	case KindInvalid:
		return Value{}, fmt.Errorf("%w: %s", ErrInvalidKind, k)
	}
	return DecodeJSON(k, []byte(text))
}
