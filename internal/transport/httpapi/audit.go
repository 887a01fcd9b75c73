package httpapi

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/gray-logic-dictionary/internal/access"
	"github.com/nerrad567/gray-logic-dictionary/internal/audit"
	"github.com/nerrad567/gray-logic-dictionary/internal/session"
	"github.com/nerrad567/gray-logic-dictionary/internal/transport"
)

// handleListAudit returns paginated audit entries. The caller's session
// must be at Service or above.
//
// Query parameters:
//   - action: connect, disconnect, request or userlevel
//   - session: filter by session ID
//   - transport: filter by connection type (cli, http, ws, mqtt, ticker)
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusNotFound, transport.CodeNotFound, "audit logging not configured")
		return
	}

	s.withSession(w, r, func(c *session.Client) {
		if !access.Permits(c.Userlevel(), access.Service) {
			writeError(w, http.StatusForbidden, transport.CodeAccessDenied, "reading the audit log requires service")
			return
		}

		q := r.URL.Query()
		filter := audit.Filter{
			Action:    q.Get("action"),
			SessionID: q.Get("session"),
			Transport: q.Get("transport"),
		}
		if v := q.Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Limit = n
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		result, err := s.auditRepo.List(r.Context(), filter)
		if err != nil {
			s.logger.Error("failed to list audit entries", "error", err)
			writeError(w, http.StatusInternalServerError, codeInternal, "failed to list audit entries")
			return
		}
		writeJSON(w, http.StatusOK, result)
	})
}
