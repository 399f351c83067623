// Package climate serves monthly precipitation series and summaries built
// from observed daily precipitation.
package climate

import (
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
	"github.com/couchcryptid/reservoir-scenario-service/internal/observability"
)

// Service indexes a daily precipitation series by month. Summaries are
// memoised in an LRU cache.
type Service struct {
	byMonth map[string][]domain.DailyPrecipitation
	months  []string
	cache   *lru.Cache[string, domain.MonthlyClimate]
	metrics *observability.Metrics
}

// NewService groups series by YYYY-MM month.
func NewService(series []domain.DailyPrecipitation, cacheSize int, metrics *observability.Metrics) (*Service, error) {
	cache, err := lru.New[string, domain.MonthlyClimate](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create climate cache: %w", err)
	}

	s := &Service{
		byMonth: make(map[string][]domain.DailyPrecipitation),
		cache:   cache,
		metrics: metrics,
	}
	for _, d := range series {
		key := d.Date.Format(domain.MonthLayout)
		if _, ok := s.byMonth[key]; !ok {
			s.months = append(s.months, key)
		}
		s.byMonth[key] = append(s.byMonth[key], d)
	}
	slices.Sort(s.months)
	for _, days := range s.byMonth {
		slices.SortFunc(days, func(a, b domain.DailyPrecipitation) int { return a.Date.Compare(b.Date) })
	}
	return s, nil
}

// Months lists the months with at least one observation, oldest first.
func (s *Service) Months() []string {
	return slices.Clone(s.months)
}

// Series returns the daily observations of month.
func (s *Service) Series(month string) ([]domain.DailyPrecipitation, error) {
	if _, err := domain.ParseMonth(month); err != nil {
		return nil, err
	}
	days, ok := s.byMonth[month]
	if !ok {
		return nil, fmt.Errorf("%w: no precipitation observations for %s", domain.ErrInsufficientData, month)
	}
	return slices.Clone(days), nil
}

// Summary returns the MonthlyClimate of month.
func (s *Service) Summary(month string) (domain.MonthlyClimate, error) {
	if summary, ok := s.cache.Get(month); ok {
		s.metrics.ClimateCache.WithLabelValues("hit").Inc()
		return summary, nil
	}
	s.metrics.ClimateCache.WithLabelValues("miss").Inc()

	t, err := domain.ParseMonth(month)
	if err != nil {
		return domain.MonthlyClimate{}, err
	}
	days, ok := s.byMonth[month]
	if !ok {
		return domain.MonthlyClimate{}, fmt.Errorf("%w: no precipitation observations for %s", domain.ErrInsufficientData, month)
	}

	summary := domain.SummarizeMonth(t, days)
	s.cache.Add(month, summary)
	return summary, nil
}
