// Package devbackend serves the dataset details, perform and download
// endpoints over local CSV and XLSX files so the workspace can run without
// the production API.
package devbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"datalens/domain/core"
	"datalens/internal"

	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Table is one loaded dataset. Every row has exactly len(Headers) cells;
// an empty cell is a missing value.
type Table struct {
	ID      core.DatasetID
	Title   string
	Headers []string
	Rows    [][]string
}

// Index returns the position of column, or -1
func (t *Table) Index(column string) int {
	for i, h := range t.Headers {
		if h == column {
			return i
		}
	}
	return -1
}

// Column returns the cells of column in row order
func (t *Table) Column(column string) ([]string, bool) {
	idx := t.Index(column)
	if idx < 0 {
		return nil, false
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, true
}

// withRows returns a shallow copy of t holding rows
func (t *Table) withRows(rows [][]string) *Table {
	return &Table{ID: t.ID, Title: t.Title, Headers: t.Headers, Rows: rows}
}

// NewTable builds a table from a header row and data rows, trimming cells and
// padding short rows
func NewTable(id core.DatasetID, title string, records [][]string) (*Table, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("dataset %s must have at least a header row and one data row", id)
	}
	headers := make([]string, len(records[0]))
	seen := map[string]bool{}
	for i, h := range records[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("dataset %s has duplicate column %q", id, h)
		}
		seen[h] = true
		headers[i] = h
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(headers))
		for j := range headers {
			if j < len(rec) {
				row[j] = strings.TrimSpace(rec[j])
			}
		}
		rows = append(rows, row)
	}
	return &Table{ID: id, Title: title, Headers: headers, Rows: rows}, nil
}

// ReadFile loads a .csv or .xlsx file. The dataset id is the file name
// without its extension.
func ReadFile(path string) (*Table, error) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))
	id, err := core.ParseDatasetID(strings.TrimSuffix(base, filepath.Ext(base)))
	if err != nil {
		return nil, err
	}
	title := strings.ReplaceAll(string(id), "_", " ")

	var records [][]string
	switch ext {
	case ".csv":
		records, err = readCSV(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	return NewTable(id, title, records)
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return records, nil
}

// readXLSX reads the first sheet of a workbook
func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

// LoadDir reads every .csv and .xlsx file in dir concurrently
func LoadDir(ctx context.Context, dir string, logger *internal.Logger) (map[core.DatasetID]*Table, error) {
	logger = logger.With("DevBackend")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".xlsx":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	start := time.Now()
	tables := make([]*Table, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := ReadFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			tables[i] = t
			logger.Debug("Loaded %s (%d columns, %d rows)", t.ID, len(t.Headers), len(t.Rows))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[core.DatasetID]*Table, len(tables))
	for _, t := range tables {
		if _, dup := out[t.ID]; dup {
			return nil, fmt.Errorf("dataset id %s is defined twice in %s", t.ID, dir)
		}
		out[t.ID] = t
	}
	logger.Info("Loaded %d datasets from %s in %s", len(out), dir, time.Since(start).Round(time.Millisecond))
	return out, nil
}
