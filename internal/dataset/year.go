package dataset

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// YearColumn is the join key added to every source before merging.
const YearColumn = "year"

// YearFunc derives the join year of row i. It reports false when the row has
// no usable year; such rows never take part in the merge.
type YearFunc func(t *Table, i int) (int, bool)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"1/2/2006 15:04",
	"20060102",
	"2006-01",
}

var fourDigits = regexp.MustCompile(`\d{4}`)

// DateYear reads the year from a date column.
func DateYear(col string) YearFunc {
	return func(t *Table, i int) (int, bool) {
		s, ok := t.Value(i, col)
		if !ok {
			return 0, false
		}
		d, ok := parseDate(s)
		if !ok {
			return 0, false
		}
		return d.Year(), true
	}
}

// parseDate tries every known layout and truncates the result to the day.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// EmbeddedYear reads the first run of four digits in a text column.
func EmbeddedYear(col string) YearFunc {
	return func(t *Table, i int) (int, bool) {
		s, ok := t.Value(i, col)
		if !ok {
			return 0, false
		}
		m := fourDigits.FindString(s)
		if m == "" {
			return 0, false
		}
		y, err := strconv.Atoi(m)
		if err != nil {
			return 0, false
		}
		return y, true
	}
}

// ColumnYear reads the year from a numeric column.
func ColumnYear(col string) YearFunc {
	return func(t *Table, i int) (int, bool) {
		v := t.Float(i, col)
		if math.IsNaN(v) || v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	}
}

// DefaultYearFuncs returns the year rule of every source for the layouts of
// the bundled CSV files. A climate table that already carries a year column
// uses it instead of the embedded year.
func DefaultYearFuncs(tables map[Source]*Table) map[Source]YearFunc {
	rules := map[Source]YearFunc{
		SourceReservoir:     DateYear("DATE"),
		SourcePrecipitation: DateYear("DATE"),
		SourceClimate:       EmbeddedYear("Temperature.1"),
		SourceLandUse:       ColumnYear("Min Year"),
		SourceStreamflow:    DateYear("datetime"),
	}
	if climate, ok := tables[SourceClimate]; ok {
		for _, h := range climate.Header {
			if strings.EqualFold(h, YearColumn) {
				rules[SourceClimate] = ColumnYear(h)
				break
			}
		}
	}
	return rules
}
