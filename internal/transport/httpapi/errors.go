package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const codeInternal = transport.CodeInternal

// statusFor maps transport error codes onto HTTP statuses.
var statusFor = map[string]int{
	transport.CodeNotFound:         http.StatusNotFound,
	transport.CodeNotAContainer:    http.StatusBadRequest,
	transport.CodeWrongKind:        http.StatusBadRequest,
	transport.CodeWrongType:        http.StatusBadRequest,
	transport.CodeBadValue:         http.StatusBadRequest,
	transport.CodeInvalidURI:       http.StatusBadRequest,
	transport.CodeBadRequest:       http.StatusBadRequest,
	transport.CodeReadOnly:         http.StatusConflict,
	transport.CodeAccessDenied:     http.StatusForbidden,
	transport.CodeInvalidUserlevel: http.StatusUnauthorized,
	transport.CodeHookRejected:     http.StatusUnprocessableEntity,
	transport.CodeClosed:           http.StatusServiceUnavailable,
}

// writeJSON writes a JSON response with the given status code and payload.
// The payload is encoded before the header is written so an encoding
// failure still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	if v == nil {
		w.WriteHeader(status)
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		//nolint:errcheck // Error is a plain struct and always encodes
		data, _ = json.Marshal(Error{Status: status, Code: codeInternal, Message: "response could not be encoded"})
	}
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(append(data, '\n'))
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeTreeError classifies err and writes it.
func writeTreeError(w http.ResponseWriter, err error) {
	code := transport.ErrorCode(err)
	status, ok := statusFor[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeError(w, status, code, err.Error())
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, transport.CodeBadRequest, message)
}
