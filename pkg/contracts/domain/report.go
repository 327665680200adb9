package domain

// Stage identifiers used in reports. The aggregate stage reports group
// reduction, not data loss; consumers must not read its dropped count as
// filtering loss.
const (
	StageFilter    = "filter"
	StageAggregate = "aggregate"
	StageCityMatch = "city_filter"
	StageCodeSplit = "code_split"
)

// StageReport is the before/after accounting every pipeline stage emits,
// one per source or category. Transformations return it alongside their
// result; the caller decides where it goes (normally the structured log).
type StageReport struct {
	Stage       string  `json:"stage"`
	Source      string  `json:"source"`
	RowsBefore  int     `json:"rows_before"`
	RowsAfter   int     `json:"rows_after"`
	RowsDropped int     `json:"rows_dropped"`
	PctDropped  float64 `json:"pct_dropped"`
}

// NewStageReport builds a report from before/after row counts.
// PctDropped is 0 when before is 0, never NaN.
func NewStageReport(stage, source string, before, after int) StageReport {
	dropped := before - after
	pct := 0.0
	if before > 0 {
		pct = 100 * float64(dropped) / float64(before)
	}
	return StageReport{
		Stage:       stage,
		Source:      source,
		RowsBefore:  before,
		RowsAfter:   after,
		RowsDropped: dropped,
		PctDropped:  pct,
	}
}
