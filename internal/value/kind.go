package value

import (
	"fmt"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

// Value variants. KindInvalid is the zero Value and marks "no payload"
// (event notifications); it is never a legal parameter type.
const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindBoolSeq
	KindIntSeq
	KindFloatSeq
	KindStringSeq
	KindBytesSeq
	KindTuple
)

var kindNames = map[Kind]string{
	KindInvalid:   "none",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindString:    "string",
	KindBytes:     "bytes",
	KindBoolSeq:   "bool[]",
	KindIntSeq:    "int[]",
	KindFloatSeq:  "float[]",
	KindStringSeq: "string[]",
	KindBytesSeq:  "bytes[]",
	KindTuple:     "tuple",
}

// String returns the kind's canonical name (e.g. "int", "float[]").
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsSequence reports whether k is one of the homogeneous sequence kinds.
func (k Kind) IsSequence() bool {
	return k >= KindBoolSeq && k <= KindBytesSeq
}

// Elem returns the scalar kind of a sequence kind, or KindInvalid.
func (k Kind) Elem() Kind {
	if !k.IsSequence() {
		return KindInvalid
	}
	return k - (KindBoolSeq - KindBool)
}

// ParseKind converts a kind name into a Kind. Accepted names are the ones
// produced by Kind.String plus a few common aliases ("boolean", "integer",
// "double", "str", "binary" and "xxx-seq" forms).
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if base, ok := strings.CutSuffix(n, "-seq"); ok {
		n = base + "[]"
	}

	aliases := map[string]string{
		"boolean": "bool",
		"integer": "int",
		"int64":   "int",
		"double":  "float",
		"float64": "float",
		"str":     "string",
		"binary":  "bytes",
	}
	elem, isSeq := strings.CutSuffix(n, "[]")
	if alias, ok := aliases[elem]; ok {
		elem = alias
	}
	if isSeq {
		elem += "[]"
	}

	for k, name := range kindNames {
		if k != KindInvalid && name == elem {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("%w: %q", ErrInvalidKind, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
