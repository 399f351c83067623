package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/reservoir-scenario-service/internal/adapter/groq"
	httpadapter "github.com/couchcryptid/reservoir-scenario-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/reservoir-scenario-service/internal/adapter/kafka"
	"github.com/couchcryptid/reservoir-scenario-service/internal/chat"
	"github.com/couchcryptid/reservoir-scenario-service/internal/climate"
	"github.com/couchcryptid/reservoir-scenario-service/internal/config"
	"github.com/couchcryptid/reservoir-scenario-service/internal/dataset"
	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
	"github.com/couchcryptid/reservoir-scenario-service/internal/model"
	"github.com/couchcryptid/reservoir-scenario-service/internal/observability"
	"github.com/couchcryptid/reservoir-scenario-service/internal/pipeline"
	"github.com/couchcryptid/reservoir-scenario-service/internal/scenario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	m, err := loadModel(cfg)
	if err != nil {
		logger.Error("failed to load model", "mode", cfg.PredictorMode, "error", err)
		os.Exit(1)
	}
	scenarios := scenario.NewService(model.NewRegistry(nil), metrics, logger)
	if err := scenarios.Install(m); err != nil {
		logger.Error("failed to install model", "error", err)
		os.Exit(1)
	}

	climateSvc, err := climate.NewService(loadPrecipitation(cfg.DataDir, logger), cfg.ClimateCacheSize, metrics)
	if err != nil {
		logger.Error("failed to create climate service", "error", err)
		os.Exit(1)
	}
	logger.Info("climate observations loaded", "months", len(climateSvc.Months()))

	if cfg.LLMAPIKey == "" {
		logger.Warn("no LLM API key configured, chat requests will fail")
	}
	completer := groq.NewClient(groq.Options{
		APIKey:      cfg.LLMAPIKey,
		URL:         cfg.LLMAPIURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	}, metrics, logger)
	advisor := chat.NewAdvisor(completer, climateSvc, metrics, logger)

	ready := httpadapter.AllReady{scenarios}

	var (
		p      *pipeline.Pipeline
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
	)
	if cfg.PipelineEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(reader, pipeline.NewTransformer(scenarios, logger), writer, logger, metrics, cfg.BatchSize)
		ready = append(ready, p)
	} else {
		logger.Info("kafka scenario pipeline disabled")
	}

	api := httpadapter.NewHandler(scenarios, climateSvc, advisor, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scenario pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	// SIGHUP reloads the model artifact.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				reloadModel(cfg, scenarios, logger)
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// loadModel fits the toy model or reads the trained artifact, per PREDICTOR_MODE.
func loadModel(cfg *config.Config) (*model.FittedModel, error) {
	switch cfg.PredictorMode {
	case config.PredictorToy:
		return model.FitToy()
	case config.PredictorArtifact:
		return model.Load(cfg.ModelPath)
	default:
		return nil, fmt.Errorf("unknown predictor mode %q", cfg.PredictorMode)
	}
}

func reloadModel(cfg *config.Config, scenarios *scenario.Service, logger *slog.Logger) {
	if cfg.PredictorMode != config.PredictorArtifact {
		logger.Info("model reload ignored", "mode", cfg.PredictorMode)
		return
	}
	m, err := model.Load(cfg.ModelPath)
	if err != nil {
		logger.Error("model reload failed, keeping current model", "path", cfg.ModelPath, "error", err)
		return
	}
	if err := scenarios.Install(m); err != nil {
		logger.Error("model reload rejected", "path", cfg.ModelPath, "error", err)
	}
}

// loadPrecipitation reads the daily precipitation series. A missing or
// unusable file leaves the climate endpoints without data.
func loadPrecipitation(dir string, logger *slog.Logger) []domain.DailyPrecipitation {
	tables, missing, err := dataset.LoadDir(dir, map[dataset.Source]string{
		dataset.SourcePrecipitation: dataset.DefaultFiles[dataset.SourcePrecipitation],
	})
	if err != nil {
		logger.Warn("failed to read precipitation data", "dir", dir, "error", err)
		return nil
	}
	if len(missing) > 0 {
		logger.Warn("precipitation data not found", "dir", dir)
		return nil
	}
	series, err := dataset.PrecipitationSeries(tables[dataset.SourcePrecipitation])
	if err != nil {
		logger.Warn("precipitation data unusable", "error", err)
		return nil
	}
	return series
}
