package model

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// ColumnStats holds the standardisation parameters of one feature.
type ColumnStats struct {
	Name string  `msgpack:"name" json:"name"`
	Mean float64 `msgpack:"mean" json:"mean"`
	Std  float64 `msgpack:"std" json:"std"`
}

// Scaler standardises feature vectors with parameters fixed at fit time.
type Scaler struct {
	Columns []ColumnStats `msgpack:"columns" json:"columns"`
}

// FitScaler computes the per-column mean and population standard deviation
// of X. A constant column gets a standard deviation of 1.
func FitScaler(names []string, X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("fit scaler: %w: no rows", domain.ErrInsufficientData)
	}
	s := &Scaler{Columns: make([]ColumnStats, len(names))}
	col := make([]float64, len(X))
	for j, name := range names {
		for i, row := range X {
			if len(row) != len(names) {
				return nil, fmt.Errorf("fit scaler: %w: row %d has %d values, want %d", domain.ErrFeatureMismatch, i, len(row), len(names))
			}
			col[i] = row[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Columns[j] = ColumnStats{Name: name, Mean: mean, Std: std}
	}
	return s, nil
}

// IdentityScaler leaves values unchanged.
func IdentityScaler(names []string) *Scaler {
	s := &Scaler{Columns: make([]ColumnStats, len(names))}
	for j, name := range names {
		s.Columns[j] = ColumnStats{Name: name, Mean: 0, Std: 1}
	}
	return s
}

// Names returns the feature names in scaler order.
func (s *Scaler) Names() []string {
	names := make([]string, len(s.Columns))
	for j, c := range s.Columns {
		names[j] = c.Name
	}
	return names
}

// Transform standardises one feature vector.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Columns) {
		return nil, fmt.Errorf("%w: got %d values, scaler has %d", domain.ErrFeatureMismatch, len(x), len(s.Columns))
	}
	out := make([]float64, len(x))
	for j, c := range s.Columns {
		out[j] = (x[j] - c.Mean) / c.Std
	}
	return out, nil
}

// Inverse undoes Transform.
func (s *Scaler) Inverse(z []float64) ([]float64, error) {
	if len(z) != len(s.Columns) {
		return nil, fmt.Errorf("%w: got %d values, scaler has %d", domain.ErrFeatureMismatch, len(z), len(s.Columns))
	}
	out := make([]float64, len(z))
	for j, c := range s.Columns {
		out[j] = z[j]*c.Std + c.Mean
	}
	return out, nil
}

// TransformAll standardises every row of X.
func (s *Scaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		z, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = z
	}
	return out, nil
}
