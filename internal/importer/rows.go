// Package importer turns CSV payloads and spreadsheet ranges into transactions.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"finboard/internal/core"
	"finboard/internal/sheets"
)

// ErrSheetsDisabled is returned for a sheets job when no reader is configured.
var ErrSheetsDisabled = errors.New("sheets import is not configured")

// ErrNoRows fails a job in which not a single row could be imported.
var ErrNoRows = errors.New("no importable rows")

// ReadCSV splits a CSV payload into rows. Rows may have differing widths.
func ReadCSV(payload string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(payload))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// readRows fetches the raw rows a spec points at.
func readRows(ctx context.Context, spec core.ImportSpec, reader sheets.RowReader) ([][]string, error) {
	switch spec.Source {
	case core.SourceCSV:
		return ReadCSV(spec.CSV)
	case core.SourceSheets:
		if reader == nil {
			return nil, ErrSheetsDisabled
		}
		return reader.ReadRows(ctx, spec.SpreadsheetID, spec.Range)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidSource, spec.Source)
	}
}

// Convert applies the spec's mapping to rows. Rows whose date, amount or
// payee cannot be read are skipped and counted.
func Convert(rows [][]string, spec core.ImportSpec) (txs []core.Transaction, skipped int) {
	if spec.HasHeader && len(rows) > 0 {
		rows = rows[1:]
	}

	layout := spec.Layout()
	txs = make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, ok := convertRow(row, spec.Mapping, layout)
		if !ok {
			skipped++
			continue
		}
		t.AccountID = spec.AccountID
		txs = append(txs, t)
	}
	return txs, skipped
}

func convertRow(row []string, m core.ColumnMapping, layout string) (core.Transaction, bool) {
	parsed, err := time.Parse(layout, cell(row, m.Date))
	if err != nil {
		return core.Transaction{}, false
	}
	amount, err := core.ParseAmount(cell(row, m.Amount))
	if err != nil {
		return core.Transaction{}, false
	}
	payee := cell(row, m.Payee)
	if payee == "" {
		return core.Transaction{}, false
	}
	return core.Transaction{
		Amount: core.Money{Cents: amount},
		Date:   core.DateOf(parsed),
		Payee:  payee,
	}, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
