package core

import (
	"errors"
	"fmt"
	"time"
)

type (
	ImportSource string
	JobStatus    string
)

const (
	SourceCSV    ImportSource = "csv"
	SourceSheets ImportSource = "sheets"

	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

var (
	ErrInvalidMapping = errors.New("invalid column mapping")
	ErrInvalidSource  = errors.New("invalid import source")
)

// ColumnMapping points each importable field at a zero-based column.
// A negative index leaves the field unmapped.
type ColumnMapping struct {
	Amount int `json:"amount"`
	Payee  int `json:"payee"`
	Date   int `json:"date"`
}

// Validate requires every field to be mapped to its own column.
func (m ColumnMapping) Validate() error {
	fields := map[string]int{"amount": m.Amount, "payee": m.Payee, "date": m.Date}
	taken := make(map[int]string, len(fields))
	for _, name := range []string{"amount", "payee", "date"} {
		col := fields[name]
		if col < 0 {
			return fmt.Errorf("%w: %s is not mapped", ErrInvalidMapping, name)
		}
		if other, dup := taken[col]; dup {
			return fmt.Errorf("%w: column %d selected for both %s and %s", ErrInvalidMapping, col, other, name)
		}
		taken[col] = name
	}
	return nil
}

// ImportSpec describes where import rows come from and how to read them.
type ImportSpec struct {
	Source        ImportSource  `json:"source"`
	AccountID     string        `json:"accountId"`
	CSV           string        `json:"csv,omitempty"`
	SpreadsheetID string        `json:"spreadsheetId,omitempty"`
	Range         string        `json:"range,omitempty"`
	Mapping       ColumnMapping `json:"mapping"`
	HasHeader     bool          `json:"hasHeader"`
	DateLayout    string        `json:"dateLayout,omitempty"`
}

// Validate checks the spec has what its source needs before a job is queued.
func (s ImportSpec) Validate() error {
	if s.AccountID == "" {
		return ErrMissingAccount
	}
	switch s.Source {
	case SourceCSV:
		if s.CSV == "" {
			return fmt.Errorf("%w: csv payload is empty", ErrInvalidSource)
		}
	case SourceSheets:
		if s.SpreadsheetID == "" || s.Range == "" {
			return fmt.Errorf("%w: spreadsheetId and range are required", ErrInvalidSource)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSource, s.Source)
	}
	return s.Mapping.Validate()
}

// Layout returns the date layout rows are parsed with.
func (s ImportSpec) Layout() string {
	if s.DateLayout == "" {
		return DateLayout
	}
	return s.DateLayout
}

// ImportJob tracks one queued import and its outcome.
type ImportJob struct {
	ID        string
	OwnerID   string
	Spec      ImportSpec
	Status    JobStatus
	Imported  int
	Skipped   int
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
