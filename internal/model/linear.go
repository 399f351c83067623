package model

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// LinearRegressor is an ordinary least squares fit with intercept.
type LinearRegressor struct {
	Features     []string  `msgpack:"features"`
	Intercept    float64   `msgpack:"intercept"`
	Coefficients []float64 `msgpack:"coefficients"`
}

// FitLinear solves the least squares problem on centred data with an SVD.
// Rank-deficient designs get the minimum-norm coefficient vector.
func FitLinear(names []string, X [][]float64, y []float64) (*LinearRegressor, error) {
	n, p := len(X), len(names)
	if n == 0 || p == 0 || len(y) != n {
		return nil, fmt.Errorf("fit linear: %w: %d rows, %d targets", domain.ErrInsufficientData, n, len(y))
	}

	xMeans := make([]float64, p)
	col := make([]float64, n)
	for j := range p {
		for i, row := range X {
			if len(row) != p {
				return nil, fmt.Errorf("fit linear: %w: row %d has %d values, want %d", domain.ErrFeatureMismatch, i, len(row), p)
			}
			col[i] = row[j]
		}
		xMeans[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	xc := mat.NewDense(n, p, nil)
	yc := mat.NewVecDense(n, nil)
	for i, row := range X {
		for j, v := range row {
			xc.Set(i, j, v-xMeans[j])
		}
		yc.SetVec(i, y[i]-yMean)
	}

	coef := make([]float64, p)
	var svd mat.SVD
	if !svd.Factorize(xc, mat.SVDThin) {
		return nil, fmt.Errorf("fit linear: svd factorization failed")
	}
	rcond := math.Nextafter(1, 2) - 1
	rcond *= float64(max(n, p))
	if rank := svd.Rank(rcond); rank > 0 {
		var b mat.VecDense
		svd.SolveVecTo(&b, yc, rank)
		for j := range coef {
			coef[j] = b.AtVec(j)
		}
	}

	return &LinearRegressor{
		Features:     slices.Clone(names),
		Intercept:    yMean - floats.Dot(coef, xMeans),
		Coefficients: coef,
	}, nil
}

// Predict evaluates the fitted hyperplane at x.
func (l *LinearRegressor) Predict(x []float64) float64 {
	return l.Intercept + floats.Dot(l.Coefficients, x)
}

// FeatureNames returns the feature order the regressor was fit with.
func (l *LinearRegressor) FeatureNames() []string {
	return l.Features
}

func (l *LinearRegressor) validate() error {
	if len(l.Coefficients) != len(l.Features) {
		return fmt.Errorf("%w: %d coefficients for %d features", ErrCorruptArtifact, len(l.Coefficients), len(l.Features))
	}
	return nil
}
