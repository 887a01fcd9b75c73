package ws

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

// method handles one JSON-RPC method for a session.
type method func(c *session.Client, params json.RawMessage) (any, error)

var methods map[string]method

func init() {
	methods = map[string]method{
		"get":         rpcGet,
		"set":         rpcSet,
		"signal":      rpcSignal,
		"subscribe":   rpcSubscribe,
		"unsubscribe": rpcUnsubscribe,
		"browse":      rpcBrowse,
		"change_ul":   rpcChangeUserlevel,
		"ping":        rpcPing,
	}
}

type uriParams struct {
	URI string `json:"uri"`
}

type setParams struct {
	URI   string          `json:"uri"`
	Value json.RawMessage `json:"value"`
}

type browseParams struct {
	Root string `json:"root"`
}

type userlevelParams struct {
	Userlevel  *access.Userlevel `json:"userlevel"`
	Credential string            `json:"credential"`
}

const credentialField = "credential"

// redact returns the request text with any credential param replaced.
// Requests that mention a credential but cannot be parsed are replaced
// whole.
func redact(data []byte) string {
	if !bytes.Contains(data, []byte(credentialField)) {
		return string(data)
	}
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		return transport.Redacted
	}
	var params map[string]json.RawMessage
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return transport.Redacted
	}
	if _, ok := params[credentialField]; !ok {
		return string(data)
	}
	params[credentialField] = json.RawMessage(`"` + transport.Redacted + `"`)
	raw, err := json.Marshal(params)
	if err != nil {
		return transport.Redacted
	}
	req.Params = raw
	out, err := json.Marshal(req)
	if err != nil {
		return transport.Redacted
	}
	return string(out)
}

// paramResult is returned by get and set.
type paramResult struct {
	URI   string      `json:"uri"`
	Type  value.Kind  `json:"type"`
	Value value.Value `json:"value"`
}

// decodeParams unmarshals params into v. Missing params decode as {}.
func decodeParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return newError(CodeInvalidParams, transport.CodeBadRequest, fmt.Sprintf("invalid params: %v", err))
	}
	return nil
}

func requireURI(p uriParams) error {
	if p.URI == "" {
		return newError(CodeInvalidParams, transport.CodeBadRequest, "params.uri is required")
	}
	return nil
}

func canonical(uri string) string {
	out, err := tree.Canonical(uri)
	if err != nil {
		return uri
	}
	return out
}

func rpcGet(c *session.Client, params json.RawMessage) (any, error) {
	var p uriParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requireURI(p); err != nil {
		return nil, err
	}
	v, err := c.Get(p.URI)
	if err != nil {
		return nil, err
	}
	return paramResult{URI: canonical(p.URI), Type: v.Kind(), Value: v}, nil
}

func rpcSet(c *session.Client, params json.RawMessage) (any, error) {
	var p setParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requireURI(uriParams{URI: p.URI}); err != nil {
		return nil, err
	}
	if len(p.Value) == 0 {
		return nil, newError(CodeInvalidParams, transport.CodeBadRequest, "params.value is required")
	}
	if err := transport.CheckWritable(c); err != nil {
		return nil, err
	}
	v, err := transport.DecodeJSON(c, p.URI, p.Value)
	if err != nil {
		return nil, err
	}
	if err := c.Set(p.URI, v); err != nil {
		return nil, err
	}
	return paramResult{URI: canonical(p.URI), Type: v.Kind(), Value: v}, nil
}

func rpcSignal(c *session.Client, params json.RawMessage) (any, error) {
	var p uriParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requireURI(p); err != nil {
		return nil, err
	}
	if err := transport.CheckWritable(c); err != nil {
		return nil, err
	}
	if err := c.Signal(p.URI); err != nil {
		return nil, err
	}
	return true, nil
}

func rpcSubscribe(c *session.Client, params json.RawMessage) (any, error) {
	var p uriParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requireURI(p); err != nil {
		return nil, err
	}
	if err := c.Subscribe(p.URI); err != nil {
		return nil, err
	}
	return uriParams{URI: canonical(p.URI)}, nil
}

func rpcUnsubscribe(c *session.Client, params json.RawMessage) (any, error) {
	var p uriParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if err := requireURI(p); err != nil {
		return nil, err
	}
	if err := c.Unsubscribe(p.URI); err != nil {
		return nil, err
	}
	return uriParams{URI: canonical(p.URI)}, nil
}

func rpcBrowse(c *session.Client, params json.RawMessage) (any, error) {
	var p browseParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	nodes := []tree.Info{}
	err := c.Browse(p.Root, func(info tree.Info) error {
		nodes = append(nodes, info)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"nodes": nodes}, nil
}

// rpcChangeUserlevel moves the session to params.userlevel. Without a
// level it reports the current one.
func rpcChangeUserlevel(c *session.Client, params json.RawMessage) (any, error) {
	var p userlevelParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("%w: %w", access.ErrInvalidUserlevel, err)
		}
	}
	if p.Userlevel != nil {
		if err := c.ChangeUserlevel(*p.Userlevel, p.Credential); err != nil {
			return nil, err
		}
	}
	return map[string]any{"userlevel": c.Userlevel()}, nil
}

func rpcPing(_ *session.Client, _ json.RawMessage) (any, error) {
	return "pong", nil
}
