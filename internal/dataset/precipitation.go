package dataset

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// GHCN daily files report precipitation in tenths of a millimetre.
const prcpScale = 10.0

// PrecipitationSeries converts a precipitation table into one reading per day,
// in millimetres, averaged across stations and sorted by date. Tables in the
// long GHCN layout are filtered to the PRCP element first.
func PrecipitationSeries(t *Table) ([]domain.DailyPrecipitation, error) {
	dateCol, valueCol := "DATE", "PRCP"
	long := t.HasColumn("element") && t.HasColumn("value")
	if long {
		dateCol, valueCol = "date", "value"
	}
	if !t.HasColumn(dateCol) || !t.HasColumn(valueCol) {
		return nil, fmt.Errorf("%w: precipitation table needs %s and %s columns", domain.ErrInsufficientData, dateCol, valueCol)
	}

	type acc struct {
		sum float64
		n   int
	}
	byDay := make(map[time.Time]*acc)

	for i := range t.Rows {
		if long {
			if el, _ := t.Value(i, "element"); !strings.EqualFold(el, "PRCP") {
				continue
			}
		}
		s, _ := t.Value(i, dateCol)
		day, ok := parseDate(s)
		if !ok {
			continue
		}
		v := t.Float(i, valueCol)
		if math.IsNaN(v) {
			continue
		}
		a, ok := byDay[day]
		if !ok {
			a = &acc{}
			byDay[day] = a
		}
		a.sum += v / prcpScale
		a.n++
	}

	series := make([]domain.DailyPrecipitation, 0, len(byDay))
	for day, a := range byDay {
		series = append(series, domain.DailyPrecipitation{
			Date:          day,
			Precipitation: a.sum / float64(a.n),
			Stations:      a.n,
		})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}
