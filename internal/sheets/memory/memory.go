// Package memory keeps spreadsheet ranges in memory for local runs and tests.
package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ports "finboard/internal/sheets"
)

// Store serves rows from memory, keyed by spreadsheet and range.
type Store struct {
	mu     sync.Mutex
	ranges map[string][][]string
}

var _ ports.RowReader = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{ranges: make(map[string][][]string)}
}

func key(spreadsheetID, rng string) string {
	return spreadsheetID + "\x00" + rng
}

// Put replaces the rows served for a range.
func (s *Store) Put(spreadsheetID, rng string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[key(spreadsheetID, rng)] = cloneRows(rows)
}

// LoadCSVFile serves the contents of a CSV file for a range.
func (s *Store) LoadCSVFile(spreadsheetID, rng, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	s.Put(spreadsheetID, rng, rows)
	return nil
}

// LoadDir serves every *.csv file in dir under spreadsheetID, using the
// file name without extension as the range. It returns how many were loaded.
func (s *Store) LoadDir(spreadsheetID, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return 0, fmt.Errorf("list %s: %w", dir, err)
	}
	for _, path := range paths {
		rng := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if err := s.LoadCSVFile(spreadsheetID, rng, path); err != nil {
			return 0, err
		}
	}
	return len(paths), nil
}

// ReadRows implements sheets.RowReader.
func (s *Store) ReadRows(_ context.Context, spreadsheetID, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.ranges[key(spreadsheetID, rng)]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", rng, ports.ErrRangeNotFound)
	}
	return cloneRows(rows), nil
}

func cloneRows(in [][]string) [][]string {
	out := make([][]string, 0, len(in))
	for _, row := range in {
		cols := make([]string, len(row))
		for i, v := range row {
			cols[i] = strings.TrimSpace(v)
		}
		out = append(out, cols)
	}
	return out
}
