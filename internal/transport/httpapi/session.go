package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
)

// requestTransport is the session.Transport of a single HTTP request.
type requestTransport struct {
	remote string
}

func (t requestTransport) ConnectionType() string { return "http" }
func (t requestTransport) RemoteEndpoint() string { return t.remote }
func (t requestTransport) Preload() error         { return nil }

// withSession runs fn in a session opened for r and authorised by its
// bearer token. Errors opening or authorising the session are written
// and fn is not called.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(c *session.Client)) {
	c := session.New(s.tree, requestTransport{remote: r.RemoteAddr}, s.callbacks,
		session.WithUserlevel(s.defaultLevel()),
		session.WithLogger(s.logger),
	)
	defer c.Close()

	if err := c.Open(); err != nil {
		writeTreeError(w, err)
		return
	}
	c.ObserveRequest(r.Method + " " + r.URL.RequestURI())

	if err := s.authorize(c, r); err != nil {
		writeTreeError(w, err)
		return
	}
	fn(c)
}

// authorize applies the userlevel carried by the request's bearer token.
// Requests without Authorization keep the default level.
func (s *Server) authorize(c *session.Client, r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return fmt.Errorf("%w: expected a bearer token", access.ErrTokenInvalid)
	}
	claims, err := access.ParseToken(token, s.secCfg.JWT.Secret)
	if err != nil {
		return err
	}
	if claims.Userlevel == c.Userlevel() {
		return nil
	}
	return c.ChangeUserlevel(claims.Userlevel, token)
}
