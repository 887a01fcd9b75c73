package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
)

type tokenRequest struct {
	Userlevel access.Userlevel `json:"userlevel"`
	Password  string           `json:"password"`
}

type tokenResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int              `json:"expires_in"`
	Userlevel   access.Userlevel `json:"userlevel"`
}

// handleIssueToken exchanges a userlevel password for a bearer token.
// The raise is decided by the same policy as interactive sessions, so a
// request already carrying a sufficient token may also renew it.
func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	if s.secCfg.JWT.Secret == "" {
		writeError(w, http.StatusServiceUnavailable, transport.CodeInternal, "token issuing not configured")
		return
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.withSession(w, r, func(c *session.Client) {
		if err := c.ChangeUserlevel(req.Userlevel, req.Password); err != nil {
			writeTreeError(w, err)
			return
		}

		ttl := s.secCfg.JWT.TTL()
		signed, err := access.IssueToken(c.ID(), req.Userlevel, s.secCfg.JWT.Secret, ttl)
		if err != nil {
			s.logger.Error("failed to issue token", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "failed to generate token")
			return
		}

		writeJSON(w, http.StatusOK, tokenResponse{
			AccessToken: signed,
			TokenType:   "Bearer",
			ExpiresIn:   int(ttl.Seconds()),
			Userlevel:   req.Userlevel,
		})
	})
}
