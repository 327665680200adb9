// Package exporter persists pipeline datasets as CSV files, one file
// per dataset named after the dataset. The pipeline's correctness never
// depends on the on-disk format beyond losing no rows and no columns.
package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/jarojasag/covid-crime/pkg/contracts/domain"
)

// CSVWriter writes datasets under a fixed output directory.
type CSVWriter struct {
	outDir string
}

// NewCSVWriter creates a writer rooted at outDir.
func NewCSVWriter(outDir string) *CSVWriter {
	return &CSVWriter{outDir: outDir}
}

// WriteDataset writes one named dataset. The filename is the dataset
// name plus ".csv"; a UTF-8 BOM keeps Excel happy with accented labels.
func (w *CSVWriter) WriteDataset(name string, headers []string, records [][]string) error {
	path := filepath.Join(w.outDir, name+".csv")

	slog.Info("writing CSV dataset",
		slog.String("dataset", name),
		slog.String("path", path),
		slog.Int("record_count", len(records)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return writer.Error()
}

// WriteIncidents persists a filtered incident collection in long form:
// the canonical columns first, then every preserved extra column in
// sorted name order so no source column is lost.
func (w *CSVWriter) WriteIncidents(name string, records []domain.IncidentRecord) error {
	extraSet := make(map[string]struct{})
	for _, r := range records {
		for k := range r.Extra {
			extraSet[k] = struct{}{}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for k := range extraSet {
		extras = append(extras, k)
	}
	sort.Strings(extras)

	headers := append([]string{"departamento", "municipio", "barrio", "fecha"}, extras...)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := []string{
			r.Departamento,
			r.Municipio,
			r.Barrio,
			r.Fecha.Format("2006-01-02"),
		}
		for _, k := range extras {
			row = append(row, r.Extra[k])
		}
		rows = append(rows, row)
	}
	return w.WriteDataset(name, headers, rows)
}

// WriteCounts persists an aggregated count collection.
func (w *CSVWriter) WriteCounts(name string, counts []domain.AggregatedCount) error {
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			c.Departamento,
			c.Municipio,
			c.Barrio,
			c.Fecha.Format("2006-01-02"),
			strconv.Itoa(c.Count),
		})
	}
	return w.WriteDataset(name, []string{"departamento", "municipio", "barrio", "fecha", "count"}, rows)
}

// WriteWeeklySeries persists a densified weekly zonal series.
func (w *CSVWriter) WriteWeeklySeries(name string, series []domain.WeeklyZonalCount) error {
	rows := make([][]string, 0, len(series))
	for _, s := range series {
		rows = append(rows, []string{
			strconv.Itoa(s.Ano),
			strconv.Itoa(s.Semana),
			s.Barrio,
			s.CodLocalidad,
			strconv.Itoa(s.Count),
		})
	}
	return w.WriteDataset(name, []string{"Año", "Semana", "Barrio", "cod_localidad", "count"}, rows)
}
