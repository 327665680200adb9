package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jarojasag/covid-crime/internal/config"
)

func writeSource(t *testing.T, dir, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		for j, cell := range row {
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", axis, cell))
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func runnerConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	src2019 := writeSource(t, dir, "hurto_2019.xlsx", [][]interface{}{
		{"DEPARTAMENTO", "MUNICIPIO", "BARRIO", "FECHA HECHO"},
		{"CUNDINAMARCA", "BOGOTA D.C.", "KENNEDY E-10", "2019-12-31"},
		{"CUNDINAMARCA", "BOGOTA D.C.", "KENNEDY E-10", "2019-12-31"},
		{"ANTIOQUIA", "", "CENTRO", "2019-12-30"},
	})
	src2020 := writeSource(t, dir, "hurto_2020.xlsx", [][]interface{}{
		{"DEPARTAMENTO", "MUNICIPIO", "BARRIO", "FECHA HECHO"},
		{"CUNDINAMARCA", "BOGOTA D.C.", "SUBA E-11", "2020-01-01"},
		{"ANTIOQUIA", "MEDELLIN", "CENTRO", "2020-01-01"},
	})

	target := []string{"departamento", "municipio", "barrio", "fecha"}
	types := []string{"text", "text", "text", "date"}

	cfg := &config.Config{
		Pipeline: config.PipelineConfig{
			OutputDir:      outDir,
			CityMarker:     "BOGOTA",
			ZonalSeparator: " E-",
			NAMarkers:      []string{"NA"},
			OnFileError:    "skip",
			Parallelism:    2,
		},
		Sources: []config.SourceSpec{
			{Name: "hurto_2019", Path: src2019, Target: target, Types: types, DateLayout: "2006-01-02"},
			{Name: "hurto_2020", Path: src2020, Target: target, Types: types, DateLayout: "2006-01-02"},
		},
		Categories: []config.CategoryPattern{
			{Name: "hurto", Pattern: "hurto"},
		},
	}
	return cfg, outDir
}

func readOutput(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunner_EndToEnd(t *testing.T) {
	cfg, outDir := runnerConfig(t)
	runner := NewRunner(cfg, slog.Default())

	require.NoError(t, runner.Run(context.Background()))

	// filtered bulk exports, one per source
	filtered2019 := readOutput(t, filepath.Join(outDir, "hurto_2019_filtrado.csv"))
	assert.Len(t, filtered2019, 3) // header + 2 kept rows; the empty-municipio row dropped

	// densified weekly zonal series for the category
	weekly := readOutput(t, filepath.Join(outDir, "hurto_bogota_semanal.csv"))
	require.Len(t, weekly, 3) // header + 2 barrios x 1 ISO week

	assert.Equal(t, []string{"Año", "Semana", "Barrio", "cod_localidad", "count"}, weekly[0])
	// 2019-12-31 and 2020-01-01 share ISO week 1 of 2020; both barrios
	// exist for both observed dates after densification.
	assert.Equal(t, []string{"2020", "1", "KENNEDY", "10", "2"}, weekly[1])
	assert.Equal(t, []string{"2020", "1", "SUBA", "11", "1"}, weekly[2])
}

func TestRunner_SkipPolicy(t *testing.T) {
	cfg, outDir := runnerConfig(t)
	cfg.Sources = append(cfg.Sources, config.SourceSpec{
		Name:   "hurto_missing",
		Path:   filepath.Join(t.TempDir(), "nope.xlsx"),
		Target: []string{"departamento", "municipio", "barrio", "fecha"},
	})

	runner := NewRunner(cfg, slog.Default())
	require.NoError(t, runner.Run(context.Background()))

	// surviving sources still produced output
	_, err := os.Stat(filepath.Join(outDir, "hurto_bogota_semanal.csv"))
	assert.NoError(t, err)
}

func TestRunner_AbortPolicy(t *testing.T) {
	cfg, _ := runnerConfig(t)
	cfg.Pipeline.OnFileError = "abort"
	cfg.Sources[0].Path = filepath.Join(t.TempDir(), "nope.xlsx")

	runner := NewRunner(cfg, slog.Default())
	err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hurto_2019")
}

func TestRunner_SchemaMismatchSkipped(t *testing.T) {
	cfg, outDir := runnerConfig(t)
	// wrong arity: five target names against four raw columns
	cfg.Sources[1].Target = []string{"departamento", "municipio", "barrio", "fecha", "cantidad"}

	runner := NewRunner(cfg, slog.Default())
	require.NoError(t, runner.Run(context.Background()))

	// the broken source contributed nothing, the other still flowed through
	weekly := readOutput(t, filepath.Join(outDir, "hurto_bogota_semanal.csv"))
	require.Len(t, weekly, 2)
	assert.Equal(t, "KENNEDY", weekly[1][2])
}
