package transport

import (
	"fmt"

	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

// ParameterType returns the declared type of the parameter at uri.
// Non-parameters yield tree.ErrWrongKind.
func ParameterType(c *session.Client, uri string) (value.Kind, error) {
	info, err := c.Describe(uri)
	if err != nil {
		return value.KindInvalid, err
	}
	if info.Kind != tree.KindParameter {
		return value.KindInvalid, fmt.Errorf("%w: %s is a %s", tree.ErrWrongKind, info.URI, info.Kind)
	}
	return info.Type, nil
}

// ParseLiteral parses a text literal for the parameter at uri.
func ParseLiteral(c *session.Client, uri, literal string) (value.Value, error) {
	k, err := ParameterType(c, uri)
	if err != nil {
		return value.Value{}, err
	}
	return value.Parse(k, literal)
}

// template returns a Value of the parameter's type to decode against. For
// tuples it is the stored value, so element kinds survive a round trip.
func template(c *session.Client, uri string) (value.Value, error) {
	info, err := c.Describe(uri)
	if err != nil {
		return value.Value{}, err
	}
	if info.Kind != tree.KindParameter {
		return value.Value{}, fmt.Errorf("%w: %s is a %s", tree.ErrWrongKind, info.URI, info.Kind)
	}
	if info.Type == value.KindTuple && info.Value.Kind() == value.KindTuple {
		return info.Value, nil
	}
	return value.Zero(info.Type), nil
}

// DecodeJSON decodes a JSON value for the parameter at uri.
func DecodeJSON(c *session.Client, uri string, raw []byte) (value.Value, error) {
	like, err := template(c, uri)
	if err != nil {
		return value.Value{}, err
	}
	return value.DecodeJSONLike(like, raw)
}

// DecodeCBOR decodes a CBOR item for the parameter at uri.
func DecodeCBOR(c *session.Client, uri string, raw []byte) (value.Value, error) {
	like, err := template(c, uri)
	if err != nil {
		return value.Value{}, err
	}
	return value.DecodeCBORLike(like, raw)
}

// Redacted replaces credentials in request text handed to
// session.Client.ObserveRequest.
const Redacted = "[redacted]"

// ErrSessionReadOnly is returned when a session at the Readonly level
// attempts a write or a signal.
var ErrSessionReadOnly = fmt.Errorf("%w: session is read-only", tree.ErrAccessDenied)

// CheckWritable refuses mutating requests from read-only sessions. The
// tree's own checks still apply to sessions that pass.
func CheckWritable(c *session.Client) error {
	if c.ReadOnly() {
		return ErrSessionReadOnly
	}
	return nil
}
