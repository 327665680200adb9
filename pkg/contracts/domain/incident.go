package domain

import (
	"time"
)

// IncidentRecord is one crime incident row after schema normalization.
// The four canonical columns are lifted into fields; every other source
// column survives verbatim in Extra.
type IncidentRecord struct {
	Departamento string            `json:"departamento" csv:"departamento"`
	Municipio    string            `json:"municipio" csv:"municipio"`
	Barrio       string            `json:"barrio" csv:"barrio"`
	Fecha        time.Time         `json:"fecha" csv:"fecha"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// AggregatedCount is the number of incidents sharing one
// (departamento, municipio, barrio, fecha) key. Immutable once produced.
type AggregatedCount struct {
	Departamento string    `json:"departamento"`
	Municipio    string    `json:"municipio"`
	Barrio       string    `json:"barrio"`
	Fecha        time.Time `json:"fecha"`
	Count        int       `json:"count"`
}

// CategoryDataset collects the aggregated counts of every source dataset
// bound to one crime category. Category identity comes from the pattern
// binding resolved at configuration time, not from the rows themselves.
type CategoryDataset struct {
	Category string            `json:"category"`
	Sources  []string          `json:"sources"`
	Counts   []AggregatedCount `json:"counts"`
}

// WeeklyZonalCount is one point of the densified Bogotá weekly series:
// summed incidents for a zonal unit in one ISO week. CodLocalidad is the
// locality code split out of the compound barrio label; empty when the
// label carried none.
type WeeklyZonalCount struct {
	Ano          int    `json:"ano" csv:"Año"`
	Semana       int    `json:"semana" csv:"Semana"`
	Barrio       string `json:"barrio" csv:"Barrio"`
	CodLocalidad string `json:"cod_localidad,omitempty" csv:"cod_localidad"`
	Count        int    `json:"count" csv:"count"`
}
