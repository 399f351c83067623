package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// ScenarioRequest is the payload of a scenario message on the source topic.
type ScenarioRequest struct {
	ID       string        `json:"id,omitempty"`
	Scenario ScenarioInput `json:"scenario"`
}

// ScenarioResult is the evaluated scenario: the water balance plus the
// regression estimate of the model that was current at evaluation time.
// PredictedStorage is nil when no estimate could be made; PredictionError
// then says why. The simulation is always present.
type ScenarioResult struct {
	ID               string         `json:"id"`
	Input            ScenarioInput  `json:"input"`
	Simulation       ScenarioOutput `json:"simulation"`
	PredictedStorage *float64       `json:"predicted_storage"`
	PredictionError  string         `json:"prediction_error,omitempty"`
	ModelID          string         `json:"model_id,omitempty"`
	ModelMode        string         `json:"model_mode,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
	ComputedAt       time.Time      `json:"computed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ParseScenarioRequest decodes a RawEvent into a ScenarioRequest. Every
// failure wraps ErrInvalidInput. A request without an ID takes the message
// key, or a deterministic ID derived from the parameters when the key is
// empty too.
func ParseScenarioRequest(raw RawEvent) (ScenarioRequest, error) {
	var req ScenarioRequest
	if err := json.Unmarshal(raw.Value, &req); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return ScenarioRequest{}, fmt.Errorf("parse scenario request: %w", err)
		}
		return ScenarioRequest{}, fmt.Errorf("parse scenario request: %w: %w", ErrInvalidInput, err)
	}
	if err := req.Scenario.Validate(); err != nil {
		return ScenarioRequest{}, fmt.Errorf("parse scenario request: %w", err)
	}
	if req.ID == "" {
		req.ID = string(raw.Key)
	}
	if req.ID == "" {
		req.ID = ScenarioID(req.Scenario)
	}
	return req, nil
}

// ScenarioID produces a deterministic ID from the scenario parameters, so a
// replayed request maps onto the same result key.
func ScenarioID(in ScenarioInput) string {
	input := fmt.Sprintf("%g|%g|%g|%g",
		in.PrecipitationChangePercent, in.TemperatureIncreaseC,
		in.CropAreaIncreasePercent, in.TechnologyAdoptionPercent)
	hash := sha256.Sum256([]byte(input))
	return "scenario-" + hex.EncodeToString(hash[:8])
}

// NewScenarioResult simulates the input and stamps the result with the
// prediction of the given model.
func NewScenarioResult(id string, in ScenarioInput, predicted float64, modelID, modelMode string) ScenarioResult {
	return ScenarioResult{
		ID:               id,
		Input:            in,
		Simulation:       Simulate(in),
		PredictedStorage: &predicted,
		ModelID:          modelID,
		ModelMode:        modelMode,
		Warnings:         in.RangeWarnings(),
		ComputedAt:       clock.Now(),
	}
}

// NewSimulationOnlyResult simulates the input and records reason as the
// cause of the missing storage prediction.
func NewSimulationOnlyResult(id string, in ScenarioInput, reason error) ScenarioResult {
	return ScenarioResult{
		ID:              id,
		Input:           in,
		Simulation:      Simulate(in),
		PredictionError: reason.Error(),
		Warnings:        in.RangeWarnings(),
		ComputedAt:      clock.Now(),
	}
}

// HasPrediction reports whether a storage estimate is attached.
func (r ScenarioResult) HasPrediction() bool {
	return r.PredictedStorage != nil
}

// SerializeScenarioResult marshals a result into an OutputEvent keyed by its ID.
func SerializeScenarioResult(result ScenarioResult) (OutputEvent, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize scenario result: %w", err)
	}
	return OutputEvent{
		Key:   []byte(result.ID),
		Value: data,
		Headers: map[string]string{
			"model_id":    result.ModelID,
			"model_mode":  result.ModelMode,
			"computed_at": result.ComputedAt.Format(time.RFC3339),
		},
	}, nil
}
