package pipeline

import (
	"sort"
	"time"

	"github.com/jarojasag/covid-crime/pkg/contracts/domain"
)

// groupKey identifies one aggregation group. Fecha is kept as its ISO
// string so map equality ignores wall-clock internals.
type groupKey struct {
	departamento string
	municipio    string
	barrio       string
	fecha        string
}

// Aggregate groups incidents by (departamento, municipio, barrio,
// fecha) and counts each group. The counts over all keys always sum to
// len(records). The report states the row-to-group reduction under the
// aggregate stage label; it is cardinality compression, not loss.
func Aggregate(source string, records []domain.IncidentRecord) ([]domain.AggregatedCount, domain.StageReport) {
	groups := make(map[groupKey]int)
	dates := make(map[string]time.Time)
	for _, rec := range records {
		key := groupKey{
			departamento: rec.Departamento,
			municipio:    rec.Municipio,
			barrio:       rec.Barrio,
			fecha:        rec.Fecha.Format("2006-01-02"),
		}
		groups[key]++
		dates[key.fecha] = rec.Fecha
	}

	counts := make([]domain.AggregatedCount, 0, len(groups))
	for key, n := range groups {
		counts = append(counts, domain.AggregatedCount{
			Departamento: key.departamento,
			Municipio:    key.municipio,
			Barrio:       key.barrio,
			Fecha:        dates[key.fecha],
			Count:        n,
		})
	}

	// Deterministic output order for reproducible exports and logs.
	sort.Slice(counts, func(i, j int) bool {
		a, b := counts[i], counts[j]
		if a.Departamento != b.Departamento {
			return a.Departamento < b.Departamento
		}
		if a.Municipio != b.Municipio {
			return a.Municipio < b.Municipio
		}
		if a.Barrio != b.Barrio {
			return a.Barrio < b.Barrio
		}
		return a.Fecha.Before(b.Fecha)
	})

	return counts, domain.NewStageReport(domain.StageAggregate, source, len(records), len(counts))
}
