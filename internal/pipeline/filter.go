// Package pipeline holds the pure transformation stages between raw
// ingestion and the Bogotá zonal series: row filtering, group-by
// aggregation and category routing. Every stage returns its result
// together with a StageReport; emitting the report is the caller's job.
package pipeline

import (
	"strings"

	"github.com/jarojasag/covid-crime/pkg/contracts/domain"
)

// Predicate decides whether an incident record is kept.
type Predicate func(domain.IncidentRecord) bool

// RequiredMunicipio returns the default validity predicate: municipio
// present and not one of the configured NA markers.
func RequiredMunicipio(naMarkers []string) Predicate {
	markers := make(map[string]struct{}, len(naMarkers))
	for _, m := range naMarkers {
		markers[strings.ToUpper(strings.TrimSpace(m))] = struct{}{}
	}
	return func(rec domain.IncidentRecord) bool {
		v := strings.ToUpper(strings.TrimSpace(rec.Municipio))
		if v == "" {
			return false
		}
		_, isNA := markers[v]
		return !isNA
	}
}

// Filter keeps the records satisfying the predicate and accounts for
// the loss. Output length never exceeds input length; equality means no
// record violated the predicate.
func Filter(source string, records []domain.IncidentRecord, keep Predicate) ([]domain.IncidentRecord, domain.StageReport) {
	kept := make([]domain.IncidentRecord, 0, len(records))
	for _, rec := range records {
		if keep(rec) {
			kept = append(kept, rec)
		}
	}
	return kept, domain.NewStageReport(domain.StageFilter, source, len(records), len(kept))
}
