// Package scenario evaluates what-if scenarios against the water-balance
// simulator and the currently installed storage model.
package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
	"github.com/couchcryptid/reservoir-scenario-service/internal/model"
	"github.com/couchcryptid/reservoir-scenario-service/internal/observability"
)

// Request sources, used as the simulations metric label.
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
)

// Service is shared by the HTTP API and the Kafka pipeline.
type Service struct {
	registry *model.Registry
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService creates a Service reading models from registry.
func NewService(registry *model.Registry, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Evaluate simulates in and predicts storage with the current model. An empty
// id is replaced by a random one. Only invalid input is an error: when the
// prediction fails the result still carries the simulation, with the cause in
// PredictionError.
func (s *Service) Evaluate(id string, in domain.ScenarioInput, source string) (domain.ScenarioResult, error) {
	if err := in.Validate(); err != nil {
		return domain.ScenarioResult{}, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	s.metrics.Simulations.WithLabelValues(source).Inc()

	m := s.registry.Current()
	predicted, err := model.Predict(m, in)
	if err != nil {
		s.metrics.Predictions.WithLabelValues("error").Inc()
		s.logger.Warn("storage prediction unavailable", "id", id, "source", source, "error", err)
		result := domain.NewSimulationOnlyResult(id, in, fmt.Errorf("predict storage: %w", err))
		if m != nil {
			result.ModelID = m.ID()
			result.ModelMode = string(m.Mode())
		}
		return result, nil
	}
	s.metrics.Predictions.WithLabelValues("success").Inc()

	return domain.NewScenarioResult(id, in, predicted, m.ID(), string(m.Mode())), nil
}

// Model returns the installed model, or nil.
func (s *Service) Model() *model.FittedModel {
	return s.registry.Current()
}

// Install validates m and makes it the model used by subsequent evaluations.
// A model that cannot take the scenario parameters is rejected and the
// current model stays installed.
func (s *Service) Install(m *model.FittedModel) error {
	if m == nil {
		return domain.ErrModelNotFitted
	}
	if err := m.Validate(); err != nil {
		return err
	}
	if err := m.ServesScenarios(); err != nil {
		return fmt.Errorf("install model %s: %w", m.ID(), err)
	}

	previous := s.registry.Swap(m)
	report := m.Report()
	s.metrics.ModelSwaps.WithLabelValues(string(m.Mode())).Inc()
	if report.Duration > 0 {
		s.metrics.TrainingDuration.Observe(report.Duration.Seconds())
	}
	if report.TestMAE != nil {
		s.metrics.ModelTestMAE.Set(*report.TestMAE)
	} else {
		s.metrics.ModelTestMAE.Set(math.NaN())
	}

	attrs := []any{"model_id", m.ID(), "mode", m.Mode(), "features", m.Features()}
	if previous != nil {
		attrs = append(attrs, "replaced", previous.ID())
	}
	s.logger.Info("model installed", attrs...)
	return nil
}

// CheckReadiness reports ready once a model is installed.
func (s *Service) CheckReadiness(ctx context.Context) error {
	return s.registry.CheckReadiness(ctx)
}
