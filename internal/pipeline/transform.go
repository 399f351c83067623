package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
	"github.com/couchcryptid/reservoir-scenario-service/internal/scenario"
)

// Evaluator computes a scenario result with the current model.
type Evaluator interface {
	Evaluate(id string, in domain.ScenarioInput, source string) (domain.ScenarioResult, error)
}

// ScenarioTransformer implements Transformer by evaluating each request.
type ScenarioTransformer struct {
	evaluator Evaluator
	logger    *slog.Logger
}

// NewTransformer creates a ScenarioTransformer.
func NewTransformer(evaluator Evaluator, logger *slog.Logger) *ScenarioTransformer {
	return &ScenarioTransformer{
		evaluator: evaluator,
		logger:    logger,
	}
}

func (t *ScenarioTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseScenarioRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	result, err := t.evaluator.Evaluate(req.ID, req.Scenario, scenario.SourceKafka)
	if err != nil {
		return domain.OutputEvent{}, err
	}
	if len(result.Warnings) > 0 {
		t.logger.Debug("scenario outside expected ranges", "id", result.ID, "warnings", result.Warnings)
	}
	return domain.SerializeScenarioResult(result)
}
