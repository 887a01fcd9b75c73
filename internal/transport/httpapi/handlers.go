package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
	"github.com/nerrad567/gray-logic-dictionary/internal/tree"
	"github.com/nerrad567/gray-logic-dictionary/internal/value"
)

// contentTypeCBOR selects CBOR value bodies on the params endpoints.
const contentTypeCBOR = "application/cbor"

// paramResponse is the body of parameter reads and writes.
type paramResponse struct {
	URI   string      `json:"uri"`
	Type  value.Kind  `json:"type"`
	Value value.Value `json:"value"`
}

// setParamRequest is the JSON body of a parameter write.
type setParamRequest struct {
	Value json.RawMessage `json:"value"`
}

// uriParam returns the node URI from the path remainder.
func uriParam(r *http.Request) string {
	return chi.URLParam(r, "*")
}

func wantsCBOR(r *http.Request, header string) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get(header))
	return err == nil && mt == contentTypeCBOR
}

// handleBrowse lists the subtree at ?root= (default: whole tree).
// Values the caller may not read are null.
func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(c *session.Client) {
		nodes := []tree.Info{}
		err := c.Browse(r.URL.Query().Get("root"), func(info tree.Info) error {
			nodes = append(nodes, info)
			return nil
		})
		if err != nil {
			writeTreeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
	})
}

// handleGetParam reads a parameter. With "Accept: application/cbor" the
// body is the bare CBOR-encoded value.
func (s *Server) handleGetParam(w http.ResponseWriter, r *http.Request) {
	uri := uriParam(r)
	s.withSession(w, r, func(c *session.Client) {
		v, err := c.Get(uri)
		if err != nil {
			writeTreeError(w, err)
			return
		}

		if wantsCBOR(r, "Accept") {
			data, err := v.MarshalCBOR()
			if err != nil {
				writeTreeError(w, err)
				return
			}
			w.Header().Set("Content-Type", contentTypeCBOR)
			w.WriteHeader(http.StatusOK)
			w.Write(data) //nolint:errcheck // Best-effort write
			return
		}

		canonical, _ := tree.Canonical(uri) //nolint:errcheck // Get already resolved uri
		writeJSON(w, http.StatusOK, paramResponse{URI: canonical, Type: v.Kind(), Value: v})
	})
}

// handleSetParam writes a parameter from {"value": ...}, or from a bare
// CBOR item when Content-Type is application/cbor.
func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	uri := uriParam(r)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, transport.CodeBadRequest, "request body too large")
			return
		}
		writeBadRequest(w, "reading request body failed")
		return
	}

	s.withSession(w, r, func(c *session.Client) {
		if err := transport.CheckWritable(c); err != nil {
			writeTreeError(w, err)
			return
		}

		var v value.Value
		if wantsCBOR(r, "Content-Type") {
			v, err = transport.DecodeCBOR(c, uri, body)
		} else {
			var req setParamRequest
			if jsonErr := json.Unmarshal(body, &req); jsonErr != nil || len(req.Value) == 0 {
				writeBadRequest(w, `expected a JSON body {"value": ...}`)
				return
			}
			v, err = transport.DecodeJSON(c, uri, req.Value)
		}
		if err != nil {
			writeTreeError(w, err)
			return
		}

		if err := c.Set(uri, v); err != nil {
			writeTreeError(w, err)
			return
		}
		canonical, _ := tree.Canonical(uri) //nolint:errcheck // Set already resolved uri
		writeJSON(w, http.StatusOK, paramResponse{URI: canonical, Type: v.Kind(), Value: v})
	})
}

// handleSignal fires an event.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	uri := uriParam(r)
	s.withSession(w, r, func(c *session.Client) {
		if err := transport.CheckWritable(c); err != nil {
			writeTreeError(w, err)
			return
		}
		if err := c.Signal(uri); err != nil {
			writeTreeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
