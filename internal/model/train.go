package model

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/reservoir-scenario-service/internal/dataset"
	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// Toy training rows: scenario parameters in domain.ScenarioParams order and
// the storage level observed for each.
var (
	toyX = [][]float64{
		{10, 1.5, 5, 30},
		{20, 2.0, 6, 40},
		{30, 3.0, 7, 50},
	}
	toyY = []float64{120, 130, 140}
)

// FitToy fits the linear toy model on the three fixed rows. Its scaler is the
// identity so coefficients apply to raw scenario parameters.
func FitToy() (*FittedModel, error) {
	start := time.Now()
	names := domain.ScenarioParams

	reg, err := FitLinear(names, toyX, toyY)
	if err != nil {
		return nil, fmt.Errorf("fit toy model: %w", err)
	}

	report := Report{
		Samples:      len(toyX),
		TrainSamples: len(toyX),
		TrainingMAE:  MeanAbsoluteError(toyY, predictAll(reg, toyX)),
		Duration:     time.Since(start),
	}
	return NewFittedModel(ModeToy, names, IdentityScaler(names), reg, report)
}

// TrainConfig controls the trained mode.
type TrainConfig struct {
	TestFraction float64
	Folds        int
	Grid         []ForestParams
	Seed         uint64
}

// DefaultTrainConfig returns the 80/20 split, 3-fold grid search with seed 42.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		TestFraction: 0.2,
		Folds:        3,
		Grid:         DefaultGrid(),
		Seed:         42,
	}
}

// Fit trains a random forest on a prepared dataset. The scaler is fitted on
// the training split only, the grid is cross-validated on that split, and the
// best candidate is refitted on the whole split and scored on the test split.
func Fit(ctx context.Context, ts *dataset.TrainingSet, cfg TrainConfig) (*FittedModel, error) {
	start := time.Now()
	if ts == nil || ts.Len() == 0 || len(ts.Features) == 0 {
		return nil, fmt.Errorf("fit: %w: empty training set", domain.ErrInsufficientData)
	}

	trainIdx, testIdx, err := TrainTestSplit(ts.Len(), cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	scaler, err := FitScaler(ts.Features, subsetRows(ts.X, trainIdx))
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	Z, err := scaler.TransformAll(ts.X)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	// Fold indices address positions inside the training split.
	trainX, trainY := subsetRows(Z, trainIdx), subset(ts.Y, trainIdx)
	positions := make([]int, len(trainIdx))
	for i := range positions {
		positions[i] = i
	}
	folds, err := KFold(positions, cfg.Folds)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	best, results, err := GridSearch(ctx, ts.Features, trainX, trainY, cfg.Grid, folds, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}

	forest, err := FitForest(ts.Features, trainX, trainY, best, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("fit: refit best: %w", err)
	}

	report := Report{
		Samples:      ts.Len(),
		TrainSamples: len(trainIdx),
		TestSamples:  len(testIdx),
		Dropped:      ts.Dropped,
		BestParams:   &best,
		CVResults:    results,
		TrainingMAE:  MeanAbsoluteError(trainY, predictAll(forest, trainX)),
	}
	testMAE := MeanAbsoluteError(subset(ts.Y, testIdx), predictAll(forest, subsetRows(Z, testIdx)))
	report.TestMAE = &testMAE
	report.Duration = time.Since(start)

	return NewFittedModel(ModeTrained, ts.Features, scaler, forest, report)
}

func predictAll(r Regressor, X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = r.Predict(x)
	}
	return out
}
