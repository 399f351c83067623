// Package dataset loads the observational CSV sources and prepares the merged,
// imputed feature matrix used to train the storage predictor.
//
// Every source is keyed by a derived integer year. The reservoir table is the
// base of a left merge: its row count is preserved and other sources only
// contribute columns.
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Source names one of the five observational tables.
type Source string

const (
	SourceReservoir     Source = "reservoir"
	SourcePrecipitation Source = "precipitation"
	SourceClimate       Source = "climate_projections"
	SourceLandUse       Source = "land_use"
	SourceStreamflow    Source = "streamflow"
)

// Sources lists every source in merge order; the reservoir table comes first.
var Sources = []Source{SourceReservoir, SourcePrecipitation, SourceClimate, SourceLandUse, SourceStreamflow}

// Table is a raw CSV table: a trimmed header and string cells.
type Table struct {
	Source Source
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable builds a table, trimming whitespace around header names.
// Short rows are padded with empty cells.
func NewTable(source Source, header []string, rows [][]string) *Table {
	t := &Table{
		Source: source,
		Header: make([]string, len(header)),
		Rows:   make([][]string, 0, len(rows)),
		index:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		name := strings.TrimSpace(h)
		t.Header[i] = name
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
	for _, r := range rows {
		if len(r) < len(header) {
			padded := make([]string, len(header))
			copy(padded, r)
			r = padded
		}
		t.Rows = append(t.Rows, r)
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the trimmed cell at row i in column col.
func (t *Table) Value(i int, col string) (string, bool) {
	j, ok := t.index[col]
	if !ok || i < 0 || i >= len(t.Rows) {
		return "", false
	}
	return strings.TrimSpace(t.Rows[i][j]), true
}

// Float parses the cell at row i in column col. Empty, unparseable and
// missing cells are NaN.
func (t *Table) Float(i int, col string) float64 {
	s, ok := t.Value(i, col)
	if !ok {
		return math.NaN()
	}
	return parseFloat(s)
}

// Filter returns a table holding the rows for which keep returns true.
func (t *Table) Filter(keep func(i int) bool) *Table {
	rows := make([][]string, 0, len(t.Rows))
	for i, r := range t.Rows {
		if keep(i) {
			rows = append(rows, r)
		}
	}
	return NewTable(t.Source, t.Header, rows)
}

// Rename replaces the header. The new header must have the same width.
func (t *Table) Rename(header []string) (*Table, error) {
	if len(header) != len(t.Header) {
		return nil, fmt.Errorf("rename %s: expected %d columns, got %d", t.Source, len(t.Header), len(header))
	}
	return NewTable(t.Source, header, t.Rows), nil
}

// parseFloat parses a numeric cell, returning NaN for anything that is not a
// finite number. Thousands separators are tolerated.
func parseFloat(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}
