package zonal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarojasag/covid-crime/pkg/contracts/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func count(mun, barrio string, fecha time.Time, n int) domain.AggregatedCount {
	return domain.AggregatedCount{
		Departamento: "CUNDINAMARCA",
		Municipio:    mun,
		Barrio:       barrio,
		Fecha:        fecha,
		Count:        n,
	}
}

func total(counts []domain.AggregatedCount) int {
	sum := 0
	for _, c := range counts {
		sum += c.Count
	}
	return sum
}

func TestFilterCity(t *testing.T) {
	counts := []domain.AggregatedCount{
		count("BOGOTA D.C.", "KENNEDY E-10", day(2020, 1, 1), 2),
		count("MEDELLIN", "CENTRO", day(2020, 1, 1), 5),
		count("BOGOTA D.C.", "SUBA E-11", day(2020, 1, 2), 1),
	}

	kept, report := FilterCity("hurto_personas", counts, "BOGOTA")

	require.Len(t, kept, 2)
	assert.Equal(t, domain.StageCityMatch, report.Stage)
	assert.Equal(t, 3, report.RowsBefore)
	assert.Equal(t, 1, report.RowsDropped)
	assert.InDelta(t, 33.33, report.PctDropped, 0.01)
}

func TestFilterCity_CaseSensitive(t *testing.T) {
	counts := []domain.AggregatedCount{
		count("Bogota D.C.", "KENNEDY E-10", day(2020, 1, 1), 2),
	}

	kept, _ := FilterCity("hurto", counts, "BOGOTA")
	assert.Empty(t, kept)
}

func TestDensify_Completeness(t *testing.T) {
	counts := []domain.AggregatedCount{
		count("BOGOTA D.C.", "KENNEDY E-10", day(2020, 1, 1), 2),
		count("BOGOTA D.C.", "SUBA E-11", day(2020, 1, 3), 1),
		count("BOGOTA D.C.", "USME E-5", day(2020, 1, 3), 4),
	}

	dense := Densify(counts)

	// 2 dates x 3 barrios, exactly one row per combination
	require.Len(t, dense, 6)
	seen := make(map[[2]string]int)
	for _, c := range dense {
		key := [2]string{c.Fecha.Format("2006-01-02"), c.Barrio}
		seen[key]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "combination %v duplicated", key)
	}

	// absent combinations are explicit zeros
	zeros := 0
	for _, c := range dense {
		if c.Count == 0 {
			zeros++
		}
	}
	assert.Equal(t, 3, zeros)
}

func TestDensify_PreservesTotal(t *testing.T) {
	counts := []domain.AggregatedCount{
		count("BOGOTA D.C.", "KENNEDY E-10", day(2020, 1, 1), 2),
		count("BOGOTA D.C.", "KENNEDY E-10", day(2020, 1, 1), 3), // same key from another source year
		count("BOGOTA D.C.", "SUBA E-11", day(2020, 2, 10), 7),
	}

	dense := Densify(counts)
	assert.Equal(t, total(counts), total(dense))
}

func TestDensify_Empty(t *testing.T) {
	assert.Empty(t, Densify(nil))
}

func TestWeekly(t *testing.T) {
	counts := []domain.AggregatedCount{
		count("BOGOTA D.C.", "KENNEDY E-10", day(2020, 1, 1), 2),
		count("BOGOTA D.C.", "KENNEDY E-10", day(2020, 1, 2), 1),
		count("BOGOTA D.C.", "KENNEDY E-10", day(2020, 1, 8), 5),
	}

	weekly := Weekly(counts)

	require.Len(t, weekly, 2)
	assert.Equal(t, domain.WeeklyZonalCount{Ano: 2020, Semana: 1, Barrio: "KENNEDY E-10", Count: 3}, weekly[0])
	assert.Equal(t, domain.WeeklyZonalCount{Ano: 2020, Semana: 2, Barrio: "KENNEDY E-10", Count: 5}, weekly[1])
}

func TestWeekly_ISOYearBoundary(t *testing.T) {
	// 2019-12-31 belongs to ISO week 1 of 2020
	weekly := Weekly([]domain.AggregatedCount{
		count("BOGOTA D.C.", "SUBA E-11", day(2019, 12, 31), 1),
		count("BOGOTA D.C.", "SUBA E-11", day(2020, 1, 1), 1),
	})

	require.Len(t, weekly, 1)
	assert.Equal(t, 2020, weekly[0].Ano)
	assert.Equal(t, 1, weekly[0].Semana)
	assert.Equal(t, 2, weekly[0].Count)
}

func TestSplitCodes(t *testing.T) {
	tests := []struct {
		name     string
		barrio   string
		wantName string
		wantCode string
		dropped  bool
	}{
		{"clean compound", "KENNEDY E-10", "KENNEDY", "10", false},
		{"no separator", "CHAPINERO", "CHAPINERO", "", false},
		{"lingering token", "A-E-B", "", "", true},
		{"double coded", "PATIO BONITO E-8 E-10", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []domain.WeeklyZonalCount{{Ano: 2020, Semana: 1, Barrio: tt.barrio, Count: 1}}
			out, report := SplitCodes("hurto", rows, " E-")

			if tt.dropped {
				assert.Empty(t, out)
				assert.Equal(t, 1, report.RowsDropped)
				assert.Equal(t, 100.0, report.PctDropped)
				return
			}
			require.Len(t, out, 1)
			assert.Equal(t, tt.wantName, out[0].Barrio)
			assert.Equal(t, tt.wantCode, out[0].CodLocalidad)
		})
	}
}

func TestSplitCodes_Idempotent(t *testing.T) {
	rows := []domain.WeeklyZonalCount{{Ano: 2020, Semana: 1, Barrio: "KENNEDY", Count: 2}}

	once, _ := SplitCodes("hurto", rows, " E-")
	twice, _ := SplitCodes("hurto", once, " E-")

	require.Len(t, twice, 1)
	assert.Equal(t, "KENNEDY", twice[0].Barrio)
	assert.Empty(t, twice[0].CodLocalidad)
}

func TestSplitCodes_EmptyInput(t *testing.T) {
	out, report := SplitCodes("hurto", nil, " E-")
	assert.Empty(t, out)
	assert.Equal(t, 0.0, report.PctDropped)
}

func TestRun_Scenario(t *testing.T) {
	ds := domain.CategoryDataset{
		Category: "hurto_personas",
		Counts: []domain.AggregatedCount{
			{Departamento: "BOG", Municipio: "BOGOTA D.C.", Barrio: "KENNEDY E-10", Fecha: day(2020, 1, 1), Count: 2},
			{Departamento: "BOG", Municipio: "MEDELLIN", Barrio: "CENTRO", Fecha: day(2020, 1, 1), Count: 9},
		},
	}

	result := Run(ds, "BOGOTA", " E-")

	require.Len(t, result.Series, 1)
	got := result.Series[0]
	assert.Equal(t, 2020, got.Ano)
	assert.Equal(t, 1, got.Semana)
	assert.Equal(t, "KENNEDY", got.Barrio)
	assert.Equal(t, "10", got.CodLocalidad)
	assert.Equal(t, 2, got.Count)

	require.Len(t, result.Reports, 2)
	assert.Equal(t, domain.StageCityMatch, result.Reports[0].Stage)
	assert.Equal(t, 1, result.Reports[0].RowsDropped)
	assert.Equal(t, domain.StageCodeSplit, result.Reports[1].Stage)
	assert.Equal(t, 0, result.Reports[1].RowsDropped)
}
