package http

import (
	"net/http"

	"finboard/internal/log"
)

// handleSummary answers GET /api/summary?from&to&accountId.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpSummarize, err)
		return
	}

	from, to := rangeFromQuery(r)
	summary, err := s.summary.Summarize(r.Context(), scopeFromQuery(r, owner), from, to)
	if err != nil {
		s.writeError(w, r, log.OpSummarize, err)
		return
	}
	writeData(w, http.StatusOK, newSummaryResponse(summary))
}
