// Package ingest reads raw crime spreadsheets and normalizes them into
// the canonical incident schema.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/jarojasag/covid-crime/internal/config"
	pipeerrors "github.com/jarojasag/covid-crime/internal/errors"
)

// RawTable is a rectangular, untyped table as read from one spreadsheet.
// Ephemeral: it exists only between reading and normalization.
type RawTable struct {
	Source string
	Header []string
	Rows   [][]string
}

// dateLayouts are tried in order when a date cell does not match the
// source's configured layout. The files mix ISO, slash and Excel serial
// formats across years.
var dateLayouts = []string{
	"2006-01-02",
	"2/01/2006",
	"02/01/2006",
	"1/02/2006 15:04:05",
	"2006-01-02 15:04:05",
	"2-Jan-06",
}

// ReadTable opens the spreadsheet declared by spec and returns its data
// as a rectangular table: header-skip rows removed, columns sliced to
// the declared range, ragged rows padded, declared column types applied.
// Any open or parse failure comes back as an IngestError.
func ReadTable(spec config.SourceSpec) (*RawTable, error) {
	f, err := excelize.OpenFile(spec.Path)
	if err != nil {
		return nil, pipeerrors.NewIngestError(spec.Path, err)
	}
	defer f.Close()

	sheet := spec.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, pipeerrors.NewIngestError(spec.Path, fmt.Errorf("workbook has no sheets"))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, pipeerrors.NewIngestError(spec.Path, fmt.Errorf("read sheet %s: %w", sheet, err))
	}
	if len(rows) <= spec.SkipRows {
		return nil, pipeerrors.NewIngestError(spec.Path, fmt.Errorf("sheet %s has %d rows, cannot skip %d", sheet, len(rows), spec.SkipRows))
	}
	rows = rows[spec.SkipRows:]

	start, end, err := parseColumnRange(spec.Columns, len(rows[0]))
	if err != nil {
		return nil, pipeerrors.NewIngestError(spec.Path, err)
	}
	width := end - start + 1

	table := &RawTable{
		Source: spec.Name,
		Header: sliceRow(rows[0], start, width),
	}
	for _, row := range rows[1:] {
		cells := sliceRow(row, start, width)
		if isEmptyRow(cells) {
			continue
		}
		table.Rows = append(table.Rows, applyTypes(cells, spec))
	}

	return table, nil
}

// parseColumnRange converts an Excel-letter range like "A:J" into
// 1-based inclusive column indices. An empty range means every column
// of the header row.
func parseColumnRange(rng string, headerWidth int) (int, int, error) {
	if rng == "" {
		return 1, headerWidth, nil
	}
	parts := strings.SplitN(rng, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid column range %q", rng)
	}
	start, err := excelize.ColumnNameToNumber(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid column range %q: %w", rng, err)
	}
	end, err := excelize.ColumnNameToNumber(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid column range %q: %w", rng, err)
	}
	if end < start {
		return 0, 0, fmt.Errorf("invalid column range %q: end before start", rng)
	}
	return start, end, nil
}

// sliceRow cuts a row to the column window, padding short rows so the
// table stays rectangular.
func sliceRow(row []string, start, width int) []string {
	out := make([]string, width)
	for i := 0; i < width; i++ {
		if idx := start - 1 + i; idx < len(row) {
			out[i] = row[idx]
		}
	}
	return out
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// applyTypes canonicalizes each cell according to the declared column
// types: date cells to ISO form, number cells stripped of thousands
// separators, text cells trimmed. Without declarations every cell is
// treated as text.
func applyTypes(cells []string, spec config.SourceSpec) []string {
	for i, cell := range cells {
		typ := "text"
		if i < len(spec.Types) {
			typ = spec.Types[i]
		}
		switch typ {
		case "date":
			cells[i] = canonicalDate(cell, spec.DateLayout)
		case "number":
			cells[i] = strings.ReplaceAll(strings.TrimSpace(cell), ",", "")
		default:
			cells[i] = strings.TrimSpace(cell)
		}
	}
	return cells
}

// canonicalDate normalizes a date cell to 2006-01-02 form. Cells that
// match no known layout, including Excel serial numbers, pass through
// trimmed so downstream accounting can still see them.
func canonicalDate(cell, layout string) string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return s
	}
	layouts := append([]string{layout}, dateLayouts...)
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
