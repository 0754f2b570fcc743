package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"finboard/internal/confirm"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/middleware/auth"
)

// envelope wraps every successful body.
type envelope struct {
	Data any `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Data: data})
}

func writeErrorStatus(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeError maps err onto a status code. Internal failures are logged and
// answered with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	status, code, errorType := classify(err)

	if status == http.StatusInternalServerError {
		log.LogError(ctx, "Request failed", err, errorType, op, nil)
		writeErrorStatus(w, status, code, "internal server error")
		return
	}

	log.LogError(ctx, "Request rejected", err, errorType, op, nil)
	writeErrorStatus(w, status, code, clientMessage(err))
}

func classify(err error) (status int, code, errorType string) {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", log.ErrorTypeAuth
	case errors.Is(err, errBadRequest), core.IsValidationError(err):
		return http.StatusBadRequest, "validation_failed", log.ErrorTypeValidation
	case errors.Is(err, core.ErrNotFound), errors.Is(err, confirm.ErrNoPrompt):
		return http.StatusNotFound, "not_found", log.ErrorTypeNotFound
	case errors.Is(err, confirm.ErrPending):
		return http.StatusConflict, "conflict", log.ErrorTypeConflict
	default:
		return http.StatusInternalServerError, "internal", log.ErrorTypeInternal
	}
}

// clientMessage drops the wrapping prefix added by decoding so clients see
// the field-level reason.
func clientMessage(err error) string {
	return strings.TrimPrefix(err.Error(), errBadRequest.Error()+": ")
}

// ownerOf returns the authenticated owner, which the auth middleware guarantees.
func ownerOf(r *http.Request) (string, error) {
	owner := auth.OwnerFromContext(r.Context())
	if owner == "" {
		return "", core.ErrUnauthenticated
	}
	return owner, nil
}
