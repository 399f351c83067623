// Command train fits the storage model on the observational datasets and
// writes it as a msgpack artifact for PREDICTOR_MODE=artifact.
//
// Usage:
//
//	go run ./cmd/train \
//	  -data-dir data \
//	  -out model.msgpack \
//	  -seed 42
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/reservoir-scenario-service/internal/dataset"
	"github.com/couchcryptid/reservoir-scenario-service/internal/model"
)

func main() {
	dataDir := flag.String("data-dir", "data", "directory containing the source CSV files")
	out := flag.String("out", "model.msgpack", "output path for the model artifact")
	seed := flag.Uint64("seed", 42, "seed for the split and bootstrap samples")
	folds := flag.Int("folds", 3, "cross-validation folds")
	testFraction := flag.Float64("test-fraction", 0.2, "fraction of rows held out for the test MAE")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := sharedobs.NewLogger(*logLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tables, missing, err := dataset.LoadDir(*dataDir, dataset.DefaultFiles)
	if err != nil {
		fatal("load datasets", err)
	}
	for _, source := range missing {
		logger.Warn("dataset not found, its columns will be missing", "source", source, "file", dataset.DefaultFiles[source])
	}

	frame, err := dataset.BuildFrame(tables)
	if err != nil {
		fatal("merge datasets", err)
	}
	ts, err := dataset.Prepare(frame, dataset.DefaultPrepareConfig())
	if err != nil {
		fatal("prepare training set", err)
	}
	if len(ts.Dropped) > 0 {
		logger.Warn("dropped features with no observed values", "features", ts.Dropped)
	}
	logger.Info("training set ready", "rows", ts.Len(), "features", ts.Features)

	cfg := model.DefaultTrainConfig()
	cfg.Seed = *seed
	cfg.Folds = *folds
	cfg.TestFraction = *testFraction

	m, err := model.Fit(ctx, ts, cfg)
	if err != nil {
		fatal("fit model", err)
	}
	if err := m.ServesScenarios(); err != nil {
		logger.Warn("model cannot serve scenario predictions and will be rejected by the service", "error", err)
	}
	if err := model.Save(*out, m); err != nil {
		fatal("save model", err)
	}

	report := m.Report()
	attrs := []any{"model_id", m.ID(), "path", *out, "duration", report.Duration}
	if report.BestParams != nil {
		attrs = append(attrs, "best_params", report.BestParams.String())
	}
	if report.TestMAE != nil {
		attrs = append(attrs, "test_mae", *report.TestMAE)
	}
	logger.Info("model written", attrs...)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fatal("write report", err)
	}
}

func fatal(step string, err error) {
	fmt.Fprintf(os.Stderr, "train: %s: %v\n", step, err)
	os.Exit(1)
}
