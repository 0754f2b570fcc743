package http

import (
	"net/http"

	"finboard/internal/log"
)

// handleCreateImport queues an import and answers 202 with the job id, or
// runs it inline and answers 201 with the finished job when no broker is
// configured.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	var req importRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}
	spec, err := req.toSpec()
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}

	job, err := s.imports.Submit(r.Context(), owner, spec)
	if err != nil {
		s.writeError(w, r, log.OpImport, err)
		return
	}

	if s.imports.Async() {
		w.Header().Set("Location", "/api/imports/"+job.ID)
		writeData(w, http.StatusAccepted, importQueuedResponse{JobID: job.ID})
		return
	}
	writeData(w, http.StatusCreated, newImportJobResponse(job))
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerOf(r)
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	job, err := s.imports.Get(r.Context(), owner, pathID(r))
	if err != nil {
		s.writeError(w, r, log.OpRead, err)
		return
	}
	writeData(w, http.StatusOK, newImportJobResponse(job))
}
