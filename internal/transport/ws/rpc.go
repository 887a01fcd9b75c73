package ws

import (
	"encoding/json"
	"errors"

	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
)

const jsonrpcVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	// CodeServerError reports dictionary errors; data holds the error code.
	CodeServerError = -32000
)

// methodUpdate is the notification method for subscribed changes.
const methodUpdate = "update"

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// isNotification reports whether the peer expects no response.
func (r *request) isNotification() bool {
	return len(r.ID) == 0
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result"`
}

type errorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   *Error          `json:"error"`
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

func newError(code int, data, message string) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// invalidParams are the dictionary codes that describe a bad request
// rather than a refused one.
var invalidParams = map[string]bool{
	transport.CodeWrongType:  true,
	transport.CodeBadValue:   true,
	transport.CodeInvalidURI: true,
	transport.CodeBadRequest: true,
}

// rpcError converts err to a JSON-RPC error.
func rpcError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	code := transport.ErrorCode(err)
	switch {
	case invalidParams[code]:
		return newError(CodeInvalidParams, code, err.Error())
	case code == transport.CodeInternal:
		return newError(CodeInternalError, code, err.Error())
	default:
		return newError(CodeServerError, code, err.Error())
	}
}

// nullID answers requests whose id could not be read.
var nullID = json.RawMessage("null")
