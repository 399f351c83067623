package scenario

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/reservoir-scenario-service/internal/dataset"
	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
	"github.com/couchcryptid/reservoir-scenario-service/internal/model"
	"github.com/couchcryptid/reservoir-scenario-service/internal/observability"
)

var referenceInput = domain.ScenarioInput{
	PrecipitationChangePercent: 10,
	TemperatureIncreaseC:       1.5,
	CropAreaIncreasePercent:    5,
	TechnologyAdoptionPercent:  30,
}

func newTestService(t *testing.T, withModel bool) (*Service, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	var m *model.FittedModel
	if withModel {
		var err error
		m, err = model.FitToy()
		require.NoError(t, err)
	}
	return NewService(model.NewRegistry(m), metrics, slog.New(slog.NewTextHandler(io.Discard, nil))), metrics
}

func metricValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	require.NoError(t, (<-ch).Write(&m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

// partialModel fits a trained model on a dataset that lost the "Min Year"
// column, leaving three features.
func partialModel(t *testing.T) *model.FittedModel {
	t.Helper()
	ts := &dataset.TrainingSet{Features: []string{"PRCP", "TAVG", "10977_00060_00003"}}
	for i := range 20 {
		prcp := float64(i % 5)
		flow := 100 + float64(i)
		ts.X = append(ts.X, []float64{prcp, 10 + float64(i%3), flow})
		ts.Y = append(ts.Y, 2*prcp+flow)
	}
	cfg := model.DefaultTrainConfig()
	cfg.Grid = []model.ForestParams{{NEstimators: 3}}
	m, err := model.Fit(context.Background(), ts, cfg)
	require.NoError(t, err)
	return m
}

func TestService_Evaluate(t *testing.T) {
	fixed := time.Date(2024, time.May, 6, 12, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(fixed))
	t.Cleanup(func() { domain.SetClock(nil) })

	svc, metrics := newTestService(t, true)

	got, err := svc.Evaluate("req-1", referenceInput, SourceKafka)
	require.NoError(t, err)

	want := domain.ScenarioResult{
		ID:         "req-1",
		Input:      referenceInput,
		Simulation: domain.Simulate(referenceInput),
		ModelID:    svc.Model().ID(),
		ModelMode:  "toy",
		ComputedAt: fixed,
	}
	require.True(t, got.HasPrediction())
	assert.InDelta(t, 120.0, *got.PredictedStorage, 1e-6)
	got.PredictedStorage = nil
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	assert.InDelta(t, 1.0, metricValue(t, metrics.Predictions.WithLabelValues("success")), 0)
}

func TestService_Evaluate_GeneratesID(t *testing.T) {
	svc, _ := newTestService(t, true)

	got, err := svc.Evaluate("", referenceInput, SourceHTTP)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
}

func TestService_Evaluate_RangeWarnings(t *testing.T) {
	svc, _ := newTestService(t, true)

	in := referenceInput
	in.TechnologyAdoptionPercent = 150
	got, err := svc.Evaluate("x", in, SourceHTTP)
	require.NoError(t, err)
	require.Len(t, got.Warnings, 1)
	assert.Contains(t, got.Warnings[0], domain.ParamTechnologyAdoption)
}

func TestService_Evaluate_NoModel(t *testing.T) {
	svc, metrics := newTestService(t, false)

	got, err := svc.Evaluate("x", domain.ScenarioInput{}, SourceHTTP)
	require.NoError(t, err)

	assert.Equal(t, domain.ScenarioOutput{InflowChange: 100, OutflowChange: 100, DemandChange: 200, StorageChange: -200}, got.Simulation)
	assert.False(t, got.HasPrediction())
	assert.Contains(t, got.PredictionError, domain.ErrModelNotFitted.Error())
	assert.Empty(t, got.ModelID)
	assert.InDelta(t, 1.0, metricValue(t, metrics.Simulations.WithLabelValues(SourceHTTP)), 0)
	assert.InDelta(t, 1.0, metricValue(t, metrics.Predictions.WithLabelValues("error")), 0)
	assert.ErrorIs(t, svc.CheckReadiness(context.Background()), domain.ErrModelNotFitted)
}

func TestService_Evaluate_PredictionFailureKeepsSimulation(t *testing.T) {
	m := partialModel(t)
	svc := NewService(model.NewRegistry(m), observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := svc.Evaluate("", referenceInput, SourceKafka)
	require.NoError(t, err)

	assert.NotEmpty(t, got.ID)
	assert.Equal(t, domain.Simulate(referenceInput), got.Simulation)
	assert.Nil(t, got.PredictedStorage)
	assert.Contains(t, got.PredictionError, "model expects 3 features")
	assert.Equal(t, m.ID(), got.ModelID)
}

func TestService_Evaluate_InvalidInput(t *testing.T) {
	svc, metrics := newTestService(t, true)

	_, err := svc.Evaluate("x", domain.ScenarioInput{TemperatureIncreaseC: math.NaN()}, SourceHTTP)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.InDelta(t, 0.0, metricValue(t, metrics.Simulations.WithLabelValues(SourceHTTP)), 0)
}

func TestService_Install(t *testing.T) {
	svc, metrics := newTestService(t, false)
	m, err := model.FitToy()
	require.NoError(t, err)

	require.NoError(t, svc.Install(m))

	assert.Same(t, m, svc.Model())
	require.NoError(t, svc.CheckReadiness(context.Background()))
	assert.InDelta(t, 1.0, metricValue(t, metrics.ModelSwaps.WithLabelValues("toy")), 0)
	assert.True(t, math.IsNaN(metricValue(t, metrics.ModelTestMAE)))

	assert.ErrorIs(t, svc.Install(nil), domain.ErrModelNotFitted)
}

func TestService_Install_RejectsPartialFeatures(t *testing.T) {
	svc, metrics := newTestService(t, true)
	current := svc.Model()

	err := svc.Install(partialModel(t))
	require.ErrorIs(t, err, domain.ErrFeatureMismatch)

	assert.Same(t, current, svc.Model())
	assert.InDelta(t, 0.0, metricValue(t, metrics.ModelSwaps.WithLabelValues("trained")), 0)

	got, err := svc.Evaluate("x", referenceInput, SourceHTTP)
	require.NoError(t, err)
	require.True(t, got.HasPrediction())
	assert.InDelta(t, 120.0, *got.PredictedStorage, 1e-6)
}
