package sheets

import (
	"context"
	"errors"
)

// ErrRangeNotFound is returned when a spreadsheet range cannot be read.
var ErrRangeNotFound = errors.New("spreadsheet range not found")

// Ports for outbound adapters.
type (
	// RowReader returns the cell values of a range, one slice per row.
	// Cells are trimmed strings; short rows are not padded.
	RowReader interface {
		ReadRows(ctx context.Context, spreadsheetID, rng string) ([][]string, error)
	}
)
