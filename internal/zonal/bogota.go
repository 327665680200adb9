// Package zonal turns a city's aggregated incident counts into a
// densified weekly series per zonal unit. The stages run in a fixed
// order: city filter, densify, week derivation and re-aggregation,
// locality code split.
package zonal

import (
	"sort"
	"strings"
	"time"

	"github.com/jarojasag/covid-crime/pkg/contracts/domain"
)

// Result is the output of one category's zonal run: the final weekly
// series plus the report of every stage that dropped rows.
type Result struct {
	Series  []domain.WeeklyZonalCount
	Reports []domain.StageReport
}

// Run executes the full zonal sequence for one category dataset.
func Run(ds domain.CategoryDataset, cityMarker, separator string) Result {
	filtered, cityReport := FilterCity(ds.Category, ds.Counts, cityMarker)
	dense := Densify(filtered)
	weekly := Weekly(dense)
	series, splitReport := SplitCodes(ds.Category, weekly, separator)
	return Result{
		Series:  series,
		Reports: []domain.StageReport{cityReport, splitReport},
	}
}

// FilterCity keeps the counts whose municipio contains the city marker.
// The match is case-sensitive against the raw municipio label; SIEDCO
// writes the capital as "BOGOTÁ D.C. (CT)" in some years and
// "BOGOTA D.C." in others, so the marker must be chosen accordingly.
func FilterCity(category string, counts []domain.AggregatedCount, marker string) ([]domain.AggregatedCount, domain.StageReport) {
	kept := make([]domain.AggregatedCount, 0, len(counts))
	for _, c := range counts {
		if strings.Contains(c.Municipio, marker) {
			kept = append(kept, c)
		}
	}
	return kept, domain.NewStageReport(domain.StageCityMatch, category, len(counts), len(kept))
}

// Densify completes the cross product of observed (departamento,
// municipio, fecha) row keys and observed barrios, filling structurally
// absent combinations with an explicit zero. This is the direct form of
// the wide-then-long reshape round trip: pivoting barrios into columns
// and back materializes exactly these zeros. Counts for a key observed
// more than once (same group arriving from two source years) are
// summed, so the total is preserved.
func Densify(counts []domain.AggregatedCount) []domain.AggregatedCount {
	if len(counts) == 0 {
		return nil
	}

	type rowKey struct {
		departamento string
		municipio    string
		fecha        string
	}

	rowKeys := make([]rowKey, 0)
	barrios := make([]string, 0)
	seenBarrios := make(map[string]struct{})
	cells := make(map[rowKey]map[string]int)

	for _, c := range counts {
		key := rowKey{c.Departamento, c.Municipio, c.Fecha.Format("2006-01-02")}
		if _, ok := cells[key]; !ok {
			rowKeys = append(rowKeys, key)
			cells[key] = make(map[string]int)
		}
		if _, ok := seenBarrios[c.Barrio]; !ok {
			seenBarrios[c.Barrio] = struct{}{}
			barrios = append(barrios, c.Barrio)
		}
		cells[key][c.Barrio] += c.Count
	}

	sort.Slice(rowKeys, func(i, j int) bool {
		a, b := rowKeys[i], rowKeys[j]
		if a.departamento != b.departamento {
			return a.departamento < b.departamento
		}
		if a.municipio != b.municipio {
			return a.municipio < b.municipio
		}
		return a.fecha < b.fecha
	})
	sort.Strings(barrios)

	out := make([]domain.AggregatedCount, 0, len(rowKeys)*len(barrios))
	for _, key := range rowKeys {
		fecha := parseISODate(key.fecha)
		for _, barrio := range barrios {
			out = append(out, domain.AggregatedCount{
				Departamento: key.departamento,
				Municipio:    key.municipio,
				Barrio:       barrio,
				Fecha:        fecha,
				Count:        cells[key][barrio],
			})
		}
	}
	return out
}

// Weekly derives the ISO year and week of each fecha and sums counts by
// (year, week, barrio), dropping the daily granularity. ISO year keeps
// the first days of January in the same week bucket as the December
// they belong to.
func Weekly(counts []domain.AggregatedCount) []domain.WeeklyZonalCount {
	type weekKey struct {
		year   int
		week   int
		barrio string
	}

	sums := make(map[weekKey]int)
	for _, c := range counts {
		year, week := c.Fecha.ISOWeek()
		sums[weekKey{year, week, c.Barrio}] += c.Count
	}

	out := make([]domain.WeeklyZonalCount, 0, len(sums))
	for key, n := range sums {
		out = append(out, domain.WeeklyZonalCount{
			Ano:    key.year,
			Semana: key.week,
			Barrio: key.barrio,
			Count:  n,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Ano != b.Ano {
			return a.Ano < b.Ano
		}
		if a.Semana != b.Semana {
			return a.Semana < b.Semana
		}
		return a.Barrio < b.Barrio
	})
	return out
}

// SplitCodes splits each compound barrio label at the last occurrence
// of the separator into the barrio name and its locality code. A label
// without the separator keeps an empty code; a label whose name part
// still carries the separator token is double coded or malformed and is
// dropped. The heuristic mirrors the source labels: "KENNEDY E-10"
// splits cleanly, "A-E-B" never matches the separator yet carries the
// token, so it goes.
func SplitCodes(category string, rows []domain.WeeklyZonalCount, separator string) ([]domain.WeeklyZonalCount, domain.StageReport) {
	token := strings.TrimSpace(separator)

	kept := make([]domain.WeeklyZonalCount, 0, len(rows))
	for _, row := range rows {
		name, code := row.Barrio, ""
		if i := strings.LastIndex(row.Barrio, separator); i >= 0 {
			name = row.Barrio[:i]
			code = strings.TrimSpace(row.Barrio[i+len(separator):])
		}
		name = strings.TrimSpace(name)
		if token != "" && strings.Contains(name, token) {
			continue
		}
		row.Barrio = name
		row.CodLocalidad = code
		kept = append(kept, row)
	}
	return kept, domain.NewStageReport(domain.StageCodeSplit, category, len(rows), len(kept))
}

func parseISODate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}
