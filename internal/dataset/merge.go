package dataset

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Frame is a numeric table produced by a merge. Missing cells are NaN.
type Frame struct {
	Columns []string
	Rows    [][]float64

	index map[string]int
}

func newFrame(columns []string) *Frame {
	f := &Frame{Columns: columns, index: make(map[string]int, len(columns))}
	for i, c := range columns {
		f.index[c] = i
	}
	return f
}

func (f *Frame) addColumn(name string) {
	f.index[name] = len(f.Columns)
	f.Columns = append(f.Columns, name)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Column returns a copy of the named column.
func (f *Frame) Column(name string) ([]float64, bool) {
	j, ok := f.index[name]
	if !ok {
		return nil, false
	}
	col := make([]float64, len(f.Rows))
	for i, r := range f.Rows {
		col[i] = r[j]
	}
	return col, true
}

// Join pairs a right-hand table with its year rule.
type Join struct {
	Table *Table
	Year  YearFunc
}

// LeftMergeOnYear keys base rows by year and attaches the columns of every
// join in order. Base rows without a year are dropped. Each joined table is
// first reduced to per-year column means, so the result has exactly one row per
// keyed base row. A joined column whose name is already taken gets the source
// name as a suffix.
func LeftMergeOnYear(base *Table, baseYear YearFunc, joins ...Join) (*Frame, error) {
	if base == nil {
		return nil, fmt.Errorf("left merge: nil base table")
	}

	baseCols := make([]string, 0, len(base.Header))
	for _, h := range base.Header {
		if h != YearColumn {
			baseCols = append(baseCols, h)
		}
	}
	frame := newFrame(append([]string{YearColumn}, baseCols...))

	for i := range base.Rows {
		y, ok := baseYear(base, i)
		if !ok {
			continue
		}
		row := make([]float64, 1, len(frame.Columns))
		row[0] = float64(y)
		for _, c := range baseCols {
			row = append(row, base.Float(i, c))
		}
		frame.Rows = append(frame.Rows, row)
	}

	for _, j := range joins {
		if j.Table == nil || j.Year == nil {
			return nil, fmt.Errorf("left merge: incomplete join")
		}
		cols, means := yearMeans(j.Table, j.Year)

		for _, c := range cols {
			name := c
			if _, taken := frame.index[name]; taken {
				name = fmt.Sprintf("%s_%s", c, j.Table.Source)
			}
			frame.addColumn(name)
		}

		for r, row := range frame.Rows {
			vals, ok := means[int(row[0])]
			if !ok {
				vals = nanRow(len(cols))
			}
			frame.Rows[r] = append(row, vals...)
		}
	}

	return frame, nil
}

// yearMeans groups t by year and averages every column except the year column.
func yearMeans(t *Table, year YearFunc) ([]string, map[int][]float64) {
	cols := make([]string, 0, len(t.Header))
	for _, h := range t.Header {
		if h != YearColumn && !slices.Contains(cols, h) {
			cols = append(cols, h)
		}
	}

	samples := make(map[int][][]float64)
	for i := range t.Rows {
		y, ok := year(t, i)
		if !ok {
			continue
		}
		if _, seen := samples[y]; !seen {
			samples[y] = make([][]float64, len(cols))
		}
		for c, name := range cols {
			if v := t.Float(i, name); !math.IsNaN(v) {
				samples[y][c] = append(samples[y][c], v)
			}
		}
	}

	means := make(map[int][]float64, len(samples))
	for y, perCol := range samples {
		row := nanRow(len(cols))
		for c, vals := range perCol {
			if len(vals) > 0 {
				row[c] = stat.Mean(vals, nil)
			}
		}
		means[y] = row
	}
	return cols, means
}

func nanRow(n int) []float64 {
	row := make([]float64, n)
	for i := range row {
		row[i] = math.NaN()
	}
	return row
}
