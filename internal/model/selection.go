package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// DefaultGrid is the hyperparameter grid of the trained mode.
func DefaultGrid() []ForestParams {
	var grid []ForestParams
	for _, n := range []int{100, 200} {
		for _, depth := range []int{0, 10, 20, 30} {
			grid = append(grid, ForestParams{NEstimators: n, MaxDepth: depth})
		}
	}
	return grid
}

// CVResult is the cross-validated error of one grid candidate.
type CVResult struct {
	Params  ForestParams `msgpack:"params" json:"params"`
	MeanMAE float64      `msgpack:"mean_mae" json:"mean_mae"`
}

// MeanAbsoluteError returns the mean absolute difference of two equal-length
// vectors.
func MeanAbsoluteError(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	return floats.Distance(actual, predicted, 1) / float64(len(actual))
}

// TrainTestSplit shuffles the indices 0..n-1 with seed and puts the first
// ceil(testFraction*n) of them in the test split.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int, err error) {
	testSize := int(math.Ceil(testFraction * float64(n)))
	if n < 2 || testSize < 1 || testSize >= n {
		return nil, nil, fmt.Errorf("%w: cannot split %d rows with test fraction %g", domain.ErrInsufficientData, n, testFraction)
	}
	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	return perm[testSize:], perm[:testSize], nil
}

// Fold is one train/validation partition of a k-fold split.
type Fold struct {
	Train      []int
	Validation []int
}

// KFold splits idx into k contiguous folds without shuffling. The first
// len(idx)%k folds hold one extra element.
func KFold(idx []int, k int) ([]Fold, error) {
	n := len(idx)
	if k < 2 || n < k {
		return nil, fmt.Errorf("%w: cannot make %d folds from %d rows", domain.ErrInsufficientData, k, n)
	}
	folds := make([]Fold, k)
	start := 0
	for f := range folds {
		size := n / k
		if f < n%k {
			size++
		}
		end := start + size
		train := make([]int, 0, n-size)
		train = append(train, idx[:start]...)
		train = append(train, idx[end:]...)
		folds[f] = Fold{Train: train, Validation: idx[start:end]}
		start = end
	}
	return folds, nil
}

// GridSearch cross-validates every candidate over folds and returns the
// candidate with the lowest mean MAE. Ties go to the earlier candidate.
// Candidates run in parallel, bounded by GOMAXPROCS.
func GridSearch(ctx context.Context, names []string, X [][]float64, y []float64, grid []ForestParams, folds []Fold, seed uint64) (ForestParams, []CVResult, error) {
	if len(grid) == 0 {
		return ForestParams{}, nil, fmt.Errorf("grid search: empty grid")
	}
	results := make([]CVResult, len(grid))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for c, params := range grid {
		g.Go(func() error {
			var total float64
			for _, fold := range folds {
				if err := ctx.Err(); err != nil {
					return err
				}
				forest, err := FitForest(names, subsetRows(X, fold.Train), subset(y, fold.Train), params, seed)
				if err != nil {
					return fmt.Errorf("candidate %s: %w", params, err)
				}
				valX := subsetRows(X, fold.Validation)
				pred := make([]float64, len(valX))
				for i, x := range valX {
					pred[i] = forest.Predict(x)
				}
				total += MeanAbsoluteError(subset(y, fold.Validation), pred)
			}
			results[c] = CVResult{Params: params, MeanMAE: total / float64(len(folds))}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ForestParams{}, nil, fmt.Errorf("grid search: %w", err)
	}

	best := 0
	for c := range results {
		if results[c].MeanMAE < results[best].MeanMAE {
			best = c
		}
	}
	return results[best].Params, results, nil
}

func subset(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}

func subsetRows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}
