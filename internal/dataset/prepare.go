package dataset

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// PrepareConfig names the candidate feature columns and the target column.
type PrepareConfig struct {
	Features []string
	Target   string
}

// DefaultPrepareConfig selects the features of the reservoir storage model.
func DefaultPrepareConfig() PrepareConfig {
	return PrepareConfig{
		Features: []string{"PRCP", "TAVG", "Min Year", "10977_00060_00003"},
		Target:   "VALUE",
	}
}

// TrainingSet is an imputed feature matrix with its target. X is row-major and
// its columns follow Features.
type TrainingSet struct {
	Features []string
	X        [][]float64
	Y        []float64

	// Dropped lists candidate features that were absent or entirely missing.
	Dropped []string
}

// Len returns the number of samples.
func (ts *TrainingSet) Len() int {
	return len(ts.Y)
}

// BuildFrame merges every available source onto the reservoir table.
func BuildFrame(tables map[Source]*Table) (*Frame, error) {
	base, ok := tables[SourceReservoir]
	if !ok {
		return nil, fmt.Errorf("%w: reservoir table is required", domain.ErrInsufficientData)
	}
	rules := DefaultYearFuncs(tables)

	var joins []Join
	for _, source := range Sources[1:] {
		if t, ok := tables[source]; ok {
			joins = append(joins, Join{Table: t, Year: rules[source]})
		}
	}
	return LeftMergeOnYear(base, rules[SourceReservoir], joins...)
}

// Prepare selects the configured features and target from a merged frame.
// Feature columns with no observed value are dropped; remaining gaps in
// features and target are filled with the column mean.
func Prepare(frame *Frame, cfg PrepareConfig) (*TrainingSet, error) {
	if frame == nil || frame.Len() == 0 {
		return nil, fmt.Errorf("%w: merged dataset has no rows", domain.ErrInsufficientData)
	}

	target, ok := frame.Column(cfg.Target)
	if !ok {
		return nil, fmt.Errorf("%w: target column %q not found", domain.ErrInsufficientData, cfg.Target)
	}
	if !imputeMean(target) {
		return nil, fmt.Errorf("%w: target column %q has no observed values", domain.ErrInsufficientData, cfg.Target)
	}

	ts := &TrainingSet{Y: target}
	var columns [][]float64
	for _, name := range cfg.Features {
		col, ok := frame.Column(name)
		if !ok || !imputeMean(col) {
			ts.Dropped = append(ts.Dropped, name)
			continue
		}
		ts.Features = append(ts.Features, name)
		columns = append(columns, col)
	}
	if len(ts.Features) == 0 {
		return nil, fmt.Errorf("%w: every candidate feature is missing", domain.ErrInsufficientData)
	}

	ts.X = make([][]float64, frame.Len())
	for i := range ts.X {
		row := make([]float64, len(columns))
		for j, col := range columns {
			row[j] = col[i]
		}
		ts.X[i] = row
	}
	return ts, nil
}

// imputeMean replaces NaN entries with the mean of the observed entries. It
// reports false when nothing was observed.
func imputeMean(col []float64) bool {
	observed := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	if len(observed) == 0 {
		return false
	}
	mean := stat.Mean(observed, nil)
	for i, v := range col {
		if math.IsNaN(v) {
			col[i] = mean
		}
	}
	return true
}
