package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"finboard/internal/core"
)

// maxBodyBytes bounds request bodies; CSV imports are the largest.
const maxBodyBytes = 5 << 20

var errBadRequest = errors.New("bad request")

type (
	nameRequest struct {
		Name string `json:"name"`
	}

	idsRequest struct {
		IDs []string `json:"ids"`
	}

	confirmRequest struct {
		Confirm *bool `json:"confirm"`
	}

	// importRequest mirrors core.ImportSpec, except that an omitted
	// hasHeader means the first row is a header.
	importRequest struct {
		Source        core.ImportSource `json:"source"`
		AccountID     string            `json:"accountId"`
		CSV           string            `json:"csv"`
		SpreadsheetID string            `json:"spreadsheetId"`
		Range         string            `json:"range"`
		Mapping       *mappingRequest   `json:"mapping"`
		HasHeader     *bool             `json:"hasHeader"`
		DateLayout    string            `json:"dateLayout"`
	}

	// Pointers tell an unmapped field apart from column 0.
	mappingRequest struct {
		Amount *int `json:"amount"`
		Payee  *int `json:"payee"`
		Date   *int `json:"date"`
	}
)

// decodeJSON reads exactly one JSON value from the body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body exceeds %d bytes", errBadRequest, maxErr.Limit)
		default:
			return fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must contain a single JSON value", errBadRequest)
	}
	return nil
}

// scopeFromQuery narrows the owner's scope to ?accountId when present.
func scopeFromQuery(r *http.Request, owner string) core.Scope {
	return core.Scope{
		OwnerID:   owner,
		AccountID: strings.TrimSpace(r.URL.Query().Get("accountId")),
	}
}

// rangeFromQuery returns the raw from and to parameters.
func rangeFromQuery(r *http.Request) (from, to string) {
	q := r.URL.Query()
	return strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// toSpec fills defaults and converts the request into an import spec.
func (req importRequest) toSpec() (core.ImportSpec, error) {
	if req.Mapping == nil {
		return core.ImportSpec{}, fmt.Errorf("%w: mapping is required", core.ErrInvalidMapping)
	}
	column := func(c *int) int {
		if c == nil {
			return -1
		}
		return *c
	}

	hasHeader := true
	if req.HasHeader != nil {
		hasHeader = *req.HasHeader
	}

	return core.ImportSpec{
		Source:        core.ImportSource(strings.ToLower(strings.TrimSpace(string(req.Source)))),
		AccountID:     strings.TrimSpace(req.AccountID),
		CSV:           req.CSV,
		SpreadsheetID: strings.TrimSpace(req.SpreadsheetID),
		Range:         strings.TrimSpace(req.Range),
		Mapping: core.ColumnMapping{
			Amount: column(req.Mapping.Amount),
			Payee:  column(req.Mapping.Payee),
			Date:   column(req.Mapping.Date),
		},
		HasHeader:  hasHeader,
		DateLayout: strings.TrimSpace(req.DateLayout),
	}, nil
}
