package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"review-insights/classifier/distilbert"
	"review-insights/config"
	"review-insights/metrics"
	"review-insights/models"
	"review-insights/services"
	"review-insights/storage"
	"review-insights/utils"
)

const (
	exitFailure   = 1
	exitBadInput  = 2
	exitInference = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger("info").Error("Invalid configuration: %v", err)
		return exitFailure
	}
	logger := utils.NewLogger(cfg.LogLevel)

	logger.Info("=== Review Insights starting ===")
	logger.Info("Config: input: %s (sheet %q) | batch: %d | max tokens: %d | output: %s",
		cfg.InputPath, cfg.InputSheet, cfg.Classifier.BatchSize, cfg.Classifier.MaxLength, cfg.OutputDir)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clf, err := distilbert.New(cfg.Classifier, logger)
	if err != nil {
		logger.Error("Failed to load sentiment model: %v", err)
		return exitInference
	}
	defer clf.Close()

	rec := metrics.NewRecorder()
	pipeline := services.NewPipeline(cfg, clf, logger, rec)

	report, err := pipeline.Run(ctx, cfg.InputPath)
	if err != nil {
		logger.Error("Pipeline failed: %v", err)
		return exitCode(err)
	}

	csvWriter, err := storage.NewCSVWriter(cfg.OutputDir)
	if err != nil {
		logger.Error("Failed to prepare output: %v", err)
		return exitFailure
	}
	if err := csvWriter.WriteReport(report); err != nil {
		logger.Error("CSV write failed: %v", err)
		return exitFailure
	}
	logger.Info("Files generated:")
	for _, p := range csvWriter.Paths() {
		logger.Info("  %s", p)
	}

	if cfg.ReportDBEnabled {
		exportToPostgres(cfg, logger, report)
	}

	if err := rec.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Warn("Failed to write metrics textfile %s: %v", cfg.MetricsTextfile, err)
	}

	services.NewInsightService().Print(report)
	fmt.Printf("  Done. Reports → %s\n\n", cfg.OutputDir)
	return 0
}

// exportToPostgres mirrors the report into PostgreSQL. The CSV files are the
// contract, so a database failure is logged but does not fail the run.
func exportToPostgres(cfg *config.Config, logger *utils.Logger, report *models.Report) {
	pgWriter, err := storage.NewPostgresWriter(cfg.DSN(), &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return
	}
	defer pgWriter.Close()

	if err := pgWriter.WriteReport(report); err != nil {
		logger.Error("PostgreSQL write failed: %v", err)
		return
	}
	logger.Info("Report mirrored to PostgreSQL (%s)", cfg.PostgresDB)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, services.ErrBadInput):
		return exitBadInput
	case errors.Is(err, services.ErrInference):
		return exitInference
	default:
		return exitFailure
	}
}
