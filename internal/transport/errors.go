package transport

import (
	"errors"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

// Error codes reported to peers.
const (
	CodeNotFound         = "not_found"
	CodeNotAContainer    = "not_a_container"
	CodeWrongKind        = "wrong_kind"
	CodeWrongType        = "wrong_type"
	CodeReadOnly         = "read_only"
	CodeAccessDenied     = "access_denied"
	CodeHookRejected     = "hook_rejected"
	CodeInvalidURI       = "invalid_uri"
	CodeInvalidUserlevel = "invalid_userlevel"
	CodeBadValue         = "bad_value"
	CodeClosed           = "closed"
	CodeBadRequest       = "bad_request"
	CodeInternal         = "internal_error"
)

// ErrBadRequest marks malformed requests (unknown command, missing
// argument) detected by a transport before reaching the session.
var ErrBadRequest = errors.New("transport: bad request")

var codes = []struct {
	err  error
	code string
}{
	{tree.ErrNotFound, CodeNotFound},
	{tree.ErrNotAContainer, CodeNotAContainer},
	{tree.ErrWrongKind, CodeWrongKind},
	{tree.ErrWrongType, CodeWrongType},
	{tree.ErrReadOnly, CodeReadOnly},
	{tree.ErrAccessDenied, CodeAccessDenied},
	{tree.ErrHookRejected, CodeHookRejected},
	{tree.ErrInvalidURI, CodeInvalidURI},
	{access.ErrInvalidUserlevel, CodeInvalidUserlevel},
	{access.ErrTokenInvalid, CodeInvalidUserlevel},
	{value.ErrTypeMismatch, CodeBadValue},
	{value.ErrRangeOrPrecisionLoss, CodeBadValue},
	{value.ErrInvalidKind, CodeBadValue},
	{session.ErrClosed, CodeClosed},
	{ErrBadRequest, CodeBadRequest},
}

// ErrorCode classifies err for the wire. Unknown errors are CodeInternal.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
