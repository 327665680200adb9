// Command crimeseries runs the crime incident pipeline: it ingests the
// configured raw spreadsheets, normalizes and filters them, aggregates
// incidents into daily geographic counts, consolidates categories
// across years and produces the densified Bogotá weekly zonal series.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jarojasag/covid-crime/internal/config"
	"github.com/jarojasag/covid-crime/internal/infrastructure"
	"github.com/jarojasag/covid-crime/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the pipeline configuration file")
	outDir := flag.String("out", "", "output directory for CSV files (overrides config)")
	parallel := flag.Int("parallel", 0, "per-file fan-out limit (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *outDir != "" {
		cfg.Pipeline.OutputDir = *outDir
	}
	if *parallel > 0 {
		cfg.Pipeline.Parallelism = *parallel
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx, runID := infrastructure.NewRunContext(context.Background())

	logger.InfoContext(ctx, "starting crime series pipeline",
		slog.String("run_id", runID),
		slog.String("config", *configPath),
		slog.String("output_dir", cfg.Pipeline.OutputDir),
		slog.Int("sources", len(cfg.Sources)))
	fmt.Printf("Processing %d source files into %s\n", len(cfg.Sources), cfg.Pipeline.OutputDir)

	runner := pipeline.NewRunner(cfg, logger)
	if err := runner.Run(ctx); err != nil {
		logger.ErrorContext(ctx, "pipeline run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Println("Pipeline run complete")
}
