// Package sheets decodes spreadsheet files into raw rows. It sits outside the
// normalization core: its only job is to pick a sheet and hand over an
// ordered sequence of header-keyed rows with typed primitive values.
package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/sheetlens/internal/table"
)

// CSVSheetName is the pseudo sheet name reported for CSV sources.
const CSVSheetName = "csv"

var (
	// ErrNoSheets indicates a workbook without any sheet.
	ErrNoSheets = errors.New("sheets: workbook has no sheets")
	// ErrUnsupportedFormat indicates a file extension the loader cannot read.
	ErrUnsupportedFormat = errors.New("sheets: unsupported format")
	// ErrSheetNotFound indicates an explicitly requested sheet is missing.
	ErrSheetNotFound = errors.New("sheets: sheet does not exist")
)

// Options controls sheet selection and row bounds.
type Options struct {
	// AllowedSheets lists acceptable sheet names; the first one present wins.
	AllowedSheets []string
	// MaxRows caps decoded data rows. Zero means unlimited.
	MaxRows int
}

// Result is a decoded sheet.
type Result struct {
	Sheet     string
	Sheets    []string
	Headers   []string
	Rows      table.Dataset
	Truncated bool
}

// Preview is the array-of-arrays view of a sheet: the header row followed by
// the first data rows as positional values.
type Preview struct {
	Sheet       string   `json:"sheet"`
	Sheets      []string `json:"sheets"`
	Headers     []any    `json:"headers"`
	Rows        [][]any  `json:"rows"`
	ColumnCount int      `json:"column_count"`
}

// SelectSheet returns the first allowed name present in available, or the
// first available sheet when none match.
func SelectSheet(available, allowed []string) (string, error) {
	if len(available) == 0 {
		return "", ErrNoSheets
	}
	for _, name := range allowed {
		for _, s := range available {
			if s == name {
				return s, nil
			}
		}
	}
	return available[0], nil
}

// IsSupported reports whether path has an extension the loader reads.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm", ".csv":
		return true
	}
	return false
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// Load decodes the selected sheet of the file at path.
func Load(ctx context.Context, path string, opts Options) (Result, error) {
	if !IsSupported(path) {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	grid, sheet, sheetList, err := readGrid(ctx, path, opts.AllowedSheets, "")
	if err != nil {
		return Result{}, err
	}
	res := Result{Sheet: sheet, Sheets: sheetList}
	if len(grid) == 0 {
		return res, nil
	}
	res.Headers = headerNames(grid[0])
	for i, cells := range grid[1:] {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		row := buildRow(res.Headers, cells)
		if row.Len() == 0 {
			continue
		}
		if opts.MaxRows > 0 && len(res.Rows) >= opts.MaxRows {
			res.Truncated = true
			break
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

// Inspect returns the header row and up to n data rows of a sheet. An empty
// sheet name selects the first sheet.
func Inspect(ctx context.Context, path, sheet string, n int) (Preview, error) {
	if !IsSupported(path) {
		return Preview{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if n <= 0 {
		n = 2
	}
	grid, chosen, sheetList, err := readGrid(ctx, path, nil, sheet)
	if err != nil {
		return Preview{}, err
	}
	p := Preview{Sheet: chosen, Sheets: sheetList, Rows: [][]any{}}
	if len(grid) == 0 {
		return p, nil
	}
	p.Headers = positional(grid[0])
	p.ColumnCount = len(grid[0])
	for _, cells := range grid[1:] {
		if len(p.Rows) >= n {
			break
		}
		p.Rows = append(p.Rows, positional(cells))
	}
	return p, nil
}

func positional(cells []cell) []any {
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = c.value
	}
	return out
}

// cell is one decoded value; nil marks an empty cell.
type cell struct {
	value any
}

func readGrid(ctx context.Context, path string, allowed []string, explicit string) ([][]cell, string, []string, error) {
	if isCSV(path) {
		if explicit != "" && explicit != CSVSheetName {
			return nil, "", nil, fmt.Errorf("%w: %s", ErrSheetNotFound, explicit)
		}
		grid, err := readCSV(ctx, path)
		return grid, CSVSheetName, []string{CSVSheetName}, err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("sheets: open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	list := f.GetSheetList()
	var sheet string
	if explicit != "" {
		sheet = explicit
		if idx, _ := f.GetSheetIndex(explicit); idx < 0 {
			return nil, "", list, fmt.Errorf("%w: %s", ErrSheetNotFound, explicit)
		}
	} else {
		sheet, err = SelectSheet(list, allowed)
		if err != nil {
			return nil, "", list, err
		}
	}
	grid, err := readWorksheet(ctx, f, sheet)
	return grid, sheet, list, err
}

func readWorksheet(ctx context.Context, f *excelize.File, sheet string) ([][]cell, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheets: read rows: %w", err)
	}
	grid := make([][]cell, 0, len(rows))
	for r, vals := range rows {
		if r%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cells := make([]cell, len(vals))
		for c, raw := range vals {
			if raw == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("sheets: cell name: %w", err)
			}
			ct, err := f.GetCellType(sheet, name)
			if err != nil {
				return nil, fmt.Errorf("sheets: cell type %s: %w", name, err)
			}
			cells[c] = cell{value: typedValue(ct, raw)}
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// typedValue converts a raw cell string using the stored cell type. Cells
// without an explicit type are numbers in the xlsx format.
func typedValue(ct excelize.CellType, raw string) any {
	switch ct {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

func readCSV(ctx context.Context, path string) ([][]cell, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sheets: open csv: %w", err)
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var grid [][]cell
	for {
		if len(grid)%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sheets: read csv: %w", err)
		}
		cells := make([]cell, len(rec))
		for i, raw := range rec {
			if len(grid) == 0 && i == 0 {
				raw = strings.TrimPrefix(raw, "\ufeff")
			}
			if raw == "" {
				continue
			}
			cells[i] = cell{value: csvValue(raw)}
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

// csvValue types CSV text the way spreadsheet applications do on import:
// numbers and TRUE/FALSE become typed, everything else stays text.
func csvValue(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if plainNumber(trimmed) {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f
		}
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return raw
}

// plainNumber reports whether s uses only decimal or exponent syntax, so
// words like NaN or Inf and underscore-grouped digits stay text.
func plainNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.' || r == '+' || r == '-' || r == 'e' || r == 'E':
		default:
			return false
		}
	}
	return true
}

// headerNames derives unique object keys from the header row. Blank headers
// become __EMPTY, __EMPTY_1, ...; repeats get a _1, _2 suffix.
func headerNames(cells []cell) []string {
	names := make([]string, len(cells))
	seen := make(map[string]bool, len(cells))
	suffix := make(map[string]int)
	for i, c := range cells {
		base := table.Format(c.value)
		if c.value == nil || base == "" {
			base = "__EMPTY"
		}
		name := base
		for seen[name] {
			suffix[base]++
			name = fmt.Sprintf("%s_%d", base, suffix[base])
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// buildRow maps non-empty cells to their headers. Cells beyond the header
// row are dropped.
func buildRow(headers []string, cells []cell) *table.Row {
	row := table.NewRow()
	for i, c := range cells {
		if c.value == nil || i >= len(headers) {
			continue
		}
		row.Set(headers[i], c.value)
	}
	return row
}
