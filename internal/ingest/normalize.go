package ingest

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jarojasag/covid-crime/internal/errors"
	"github.com/jarojasag/covid-crime/pkg/contracts/domain"
)

// Canonical column names every normalized table must carry.
const (
	ColDepartamento = "departamento"
	ColMunicipio    = "municipio"
	ColBarrio       = "barrio"
	ColFecha        = "fecha"
)

// stripMarks removes diacritics by decomposing and dropping combining
// marks, so "AÑO" and "ANO" canonicalize identically.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// CleanName canonicalizes a column name: lowercase, diacritics
// transliterated to base Latin characters, spaces to underscores.
// Source headers drift between files ("Fecha hecho", "FECHA HECHO",
// "Fecha  Hecho"); cleaning them first keeps positional renames honest.
func CleanName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), "_")
}

// CleanHeader applies CleanName to every header cell in place.
func CleanHeader(t *RawTable) {
	for i, h := range t.Header {
		t.Header[i] = CleanName(h)
	}
}

// Rename replaces the raw header with the target names positionally.
// Returns SchemaMismatchError when the cardinalities differ; no value
// level transformation happens here.
func Rename(t *RawTable, target []string) error {
	if len(t.Header) != len(target) {
		return errors.NewSchemaMismatch(t.Source, len(t.Header), len(target))
	}
	t.Header = append([]string(nil), target...)
	return nil
}

// ToIncidents lifts the canonical columns out of a renamed table and
// preserves every other column verbatim in Extra. Date cells were
// already canonicalized by the reader; a cell that still does not parse
// leaves Fecha at its zero value rather than failing the whole file.
func ToIncidents(t *RawTable) []domain.IncidentRecord {
	idx := make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		idx[name] = i
	}

	records := make([]domain.IncidentRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := domain.IncidentRecord{
			Departamento: cellAt(row, idx, ColDepartamento),
			Municipio:    cellAt(row, idx, ColMunicipio),
			Barrio:       cellAt(row, idx, ColBarrio),
		}
		if raw := cellAt(row, idx, ColFecha); raw != "" {
			if d, err := time.Parse("2006-01-02", raw); err == nil {
				rec.Fecha = d
			}
		}
		for name, i := range idx {
			switch name {
			case ColDepartamento, ColMunicipio, ColBarrio, ColFecha:
				continue
			}
			if i < len(row) {
				if rec.Extra == nil {
					rec.Extra = make(map[string]string)
				}
				rec.Extra[name] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

func cellAt(row []string, idx map[string]int, name string) string {
	if i, ok := idx[name]; ok && i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}
