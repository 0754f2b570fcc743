package http

import (
	"context"
	"fmt"
	"net/http"

	"finboard/internal/confirm"
	"finboard/internal/log"
)

type deleteRequester func(ctx context.Context, ownerID string, ids []string) (confirm.Prompt, error)

// bulkDelete registers a confirmation prompt instead of deleting; the
// deletion runs once the prompt is confirmed.
func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request, request deleteRequester) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	var req idsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	prompt, err := request(r.Context(), owner, req.IDs)
	if err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	writeData(w, http.StatusAccepted, prompt)
}

// handleConfirm answers POST /api/confirmations/{id} with {"confirm": bool}.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpConfirm, err)
		return
	}
	var req confirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpConfirm, err)
		return
	}
	if req.Confirm == nil {
		s.writeError(w, r, log.OpConfirm, fmt.Errorf("%w: confirm is required", errBadRequest))
		return
	}

	result, err := s.ledger.Confirm(r.Context(), owner, pathID(r), *req.Confirm)
	if err != nil {
		s.writeError(w, r, log.OpConfirm, err)
		return
	}
	writeData(w, http.StatusOK, result)
}
