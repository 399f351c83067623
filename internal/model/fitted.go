// Package model fits and evaluates the reservoir storage predictor.
//
// A FittedModel bundles the ordered feature names, the standardisation
// parameters and one regressor. It is immutable once built: retraining
// produces a new instance, and the Registry swaps instances atomically.
package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// Mode identifies how a model was fitted.
type Mode string

const (
	// ModeToy fits a linear regression on three fixed rows of scenario
	// parameters.
	ModeToy Mode = "toy"
	// ModeTrained fits a random forest on the merged observational datasets.
	ModeTrained Mode = "trained"
)

// Regressor maps a standardised feature vector to a storage value.
type Regressor interface {
	Predict(x []float64) float64
	FeatureNames() []string
}

// Report describes a training run.
type Report struct {
	Samples      int           `json:"samples"`
	TrainSamples int           `json:"train_samples"`
	TestSamples  int           `json:"test_samples"`
	Dropped      []string      `json:"dropped_features,omitempty"`
	BestParams   *ForestParams `json:"best_params,omitempty"`
	CVResults    []CVResult    `json:"cv_results,omitempty"`
	TrainingMAE  float64       `json:"training_mae"`
	TestMAE      *float64      `json:"test_mae,omitempty"`
	Duration     time.Duration `json:"duration"`
}

// FittedModel is an immutable storage predictor.
type FittedModel struct {
	id        string
	mode      Mode
	createdAt time.Time
	features  []string
	scaler    *Scaler
	regressor Regressor
	report    Report
}

// NewFittedModel assembles a model and checks that the feature order of the
// model, scaler and regressor agree.
func NewFittedModel(mode Mode, features []string, scaler *Scaler, regressor Regressor, report Report) (*FittedModel, error) {
	m := &FittedModel{
		id:        uuid.NewString(),
		mode:      mode,
		createdAt: domain.Now(),
		features:  slices.Clone(features),
		scaler:    scaler,
		regressor: regressor,
		report:    report,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ID returns the random identifier assigned when the model was built.
func (m *FittedModel) ID() string { return m.id }

// Mode returns how the model was fitted.
func (m *FittedModel) Mode() Mode { return m.mode }

// CreatedAt returns the time the model was built.
func (m *FittedModel) CreatedAt() time.Time { return m.createdAt }

// Report returns the training report. Toy models carry no test metrics.
func (m *FittedModel) Report() Report { return m.report }

// Features returns a copy of the feature order.
func (m *FittedModel) Features() []string {
	return slices.Clone(m.features)
}

// ScalerStats returns a copy of the standardisation parameters.
func (m *FittedModel) ScalerStats() []ColumnStats {
	return slices.Clone(m.scaler.Columns)
}

// Validate reports ErrFeatureMismatch when the feature names of the model,
// its scaler and its regressor differ in count or order.
func (m *FittedModel) Validate() error {
	if m.scaler == nil || m.regressor == nil {
		return fmt.Errorf("%w: model is incomplete", domain.ErrModelNotFitted)
	}
	if len(m.features) == 0 {
		return fmt.Errorf("%w: model has no features", domain.ErrFeatureMismatch)
	}
	if err := sameOrder("scaler", m.features, m.scaler.Names()); err != nil {
		return err
	}
	return sameOrder("regressor", m.features, m.regressor.FeatureNames())
}

func sameOrder(part string, want, got []string) error {
	if len(want) != len(got) {
		return fmt.Errorf("%w: %s has %d features, model has %d", domain.ErrFeatureMismatch, part, len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			return fmt.Errorf("%w: %s feature %d is %q, model expects %q", domain.ErrFeatureMismatch, part, i, got[i], want[i])
		}
	}
	return nil
}

// PredictVector scales x with the stored parameters and evaluates the
// regressor. x must follow Features order.
func (m *FittedModel) PredictVector(x []float64) (float64, error) {
	if m == nil {
		return 0, domain.ErrModelNotFitted
	}
	if err := m.Validate(); err != nil {
		return 0, err
	}
	z, err := m.scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	return m.regressor.Predict(z), nil
}

// ServesScenarios reports ErrFeatureMismatch when the model cannot take the
// scenario parameters positionally, e.g. a trained model whose dataset lost a
// feature column.
func (m *FittedModel) ServesScenarios() error {
	if m == nil {
		return domain.ErrModelNotFitted
	}
	if len(m.features) != len(domain.ScenarioParams) {
		return fmt.Errorf("%w: model expects %d features, scenario has %d", domain.ErrFeatureMismatch, len(m.features), len(domain.ScenarioParams))
	}
	return nil
}

// Predict feeds the four scenario parameters, in their canonical order, to the
// model. Inputs are not range checked.
func Predict(m *FittedModel, in domain.ScenarioInput) (float64, error) {
	if m == nil {
		return 0, domain.ErrModelNotFitted
	}
	if err := in.Validate(); err != nil {
		return 0, err
	}
	if err := m.ServesScenarios(); err != nil {
		return 0, err
	}
	return m.PredictVector(in.Vector())
}
