package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/jarojasag/covid-crime/internal/config"
	"github.com/jarojasag/covid-crime/internal/exporter"
	"github.com/jarojasag/covid-crime/internal/ingest"
	"github.com/jarojasag/covid-crime/internal/zonal"
	"github.com/jarojasag/covid-crime/pkg/contracts/domain"
)

// Runner executes the whole pipeline for one configuration: per-source
// ingestion and filtering (fanned out across files), aggregation,
// category routing and the Bogotá zonal stage, with CSV exports along
// the way. Stage reports are emitted through the logger in source
// declaration order regardless of fan-out scheduling.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	writer *exporter.CSVWriter
}

// NewRunner builds a runner for the given configuration.
func NewRunner(cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		logger: logger,
		writer: exporter.NewCSVWriter(cfg.Pipeline.OutputDir),
	}
}

// sourceResult carries one file's outcome from the fan-out phase back
// to the sequential phase.
type sourceResult struct {
	spec      config.SourceSpec
	incidents []domain.IncidentRecord
	reports   []domain.StageReport
	err       error
}

// Run processes every configured source and category. With the "skip"
// failure policy a broken file is logged and excluded; with "abort" the
// first failure stops the run.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting pipeline run",
		slog.Int("sources", len(r.cfg.Sources)),
		slog.Int("categories", len(r.cfg.Categories)),
		slog.String("on_file_error", r.cfg.Pipeline.OnFileError))

	results := make([]sourceResult, len(r.cfg.Sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Pipeline.Parallelism)
	for i, spec := range r.cfg.Sources {
		i, spec := i, spec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.processSource(spec)
			if results[i].err != nil && r.cfg.Pipeline.OnFileError == "abort" {
				return fmt.Errorf("source %s: %w", spec.Name, results[i].err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Sequential phase: reports, exports and aggregation in declaration
	// order so logs and outputs stay reproducible.
	datasets := make(map[string][]domain.AggregatedCount, len(results))
	identifiers := make([]string, 0, len(results))
	for _, res := range results {
		if res.err != nil {
			r.logger.ErrorContext(ctx, "source skipped after failure",
				slog.String("source", res.spec.Name),
				slog.String("error", res.err.Error()))
			continue
		}
		for _, rep := range res.reports {
			r.logReport(ctx, rep)
		}

		if err := r.writer.WriteIncidents(res.spec.Name+"_filtrado", res.incidents); err != nil {
			return fmt.Errorf("export filtered incidents for %s: %w", res.spec.Name, err)
		}

		counts, aggReport := Aggregate(res.spec.Name, res.incidents)
		r.logReport(ctx, aggReport)
		datasets[res.spec.Name] = counts
		identifiers = append(identifiers, res.spec.Name)
	}

	bindings, err := ResolveCategories(identifiers, r.cfg.Categories)
	if err != nil {
		return err
	}

	for _, binding := range bindings {
		if len(binding.Sources) == 0 {
			r.logger.WarnContext(ctx, "category matched no source datasets",
				slog.String("category", binding.Category))
		}
		ds := Concat(binding, datasets)
		r.logger.InfoContext(ctx, "category dataset assembled",
			slog.String("category", ds.Category),
			slog.Any("sources", ds.Sources),
			slog.Int("count_rows", len(ds.Counts)))

		result := zonal.Run(ds, r.cfg.Pipeline.CityMarker, r.cfg.Pipeline.ZonalSeparator)
		for _, rep := range result.Reports {
			r.logReport(ctx, rep)
		}
		if err := r.writer.WriteWeeklySeries(ds.Category+"_bogota_semanal", result.Series); err != nil {
			return fmt.Errorf("export weekly series for %s: %w", ds.Category, err)
		}
	}

	r.logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("sources_processed", len(identifiers)),
		slog.Int("sources_failed", len(results)-len(identifiers)))
	return nil
}

// processSource runs the per-file chain: read, clean header, rename,
// lift to incidents, filter. Pure with respect to shared state; safe to
// fan out.
func (r *Runner) processSource(spec config.SourceSpec) sourceResult {
	res := sourceResult{spec: spec}

	table, err := ingest.ReadTable(spec)
	if err != nil {
		res.err = err
		return res
	}

	ingest.CleanHeader(table)
	if err := ingest.Rename(table, spec.Target); err != nil {
		res.err = err
		return res
	}

	records := ingest.ToIncidents(table)
	filtered, report := Filter(spec.Name, records, RequiredMunicipio(r.cfg.Pipeline.NAMarkers))
	res.incidents = filtered
	res.reports = append(res.reports, report)
	return res
}

func (r *Runner) logReport(ctx context.Context, rep domain.StageReport) {
	r.logger.InfoContext(ctx, "stage report",
		slog.String("stage", rep.Stage),
		slog.String("source", rep.Source),
		slog.Int("rows_before", rep.RowsBefore),
		slog.Int("rows_after", rep.RowsAfter),
		slog.Int("rows_dropped", rep.RowsDropped),
		slog.Float64("pct_dropped", rep.PctDropped))
}
