package domain

import (
	"fmt"
	"time"
)

// MonthLayout is the month key format used by the precipitation selector.
const MonthLayout = "2006-01"

// DailyPrecipitation is one day of observed precipitation in millimetres.
// Multiple station readings for the same day are averaged.
type DailyPrecipitation struct {
	Date          time.Time `json:"date"`
	Precipitation float64   `json:"precipitation_mm"`
	Stations      int       `json:"stations"`
}

// MonthlyClimate summarizes the observations of one month.
type MonthlyClimate struct {
	Month              string  `json:"month"`
	MonthName          string  `json:"month_name"`
	Year               int     `json:"year"`
	TotalPrecipitation float64 `json:"total_precipitation_mm"`
	RainyDays          int     `json:"rainy_days"`
	AverageDaily       float64 `json:"average_daily_mm"`
	ObservedDays       int     `json:"observed_days"`
}

// ChatMessage is one turn of an LLM conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles understood by OpenAI-compatible completion APIs.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ParseMonth validates a YYYY-MM month key.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: month %q must be YYYY-MM", ErrInvalidInput, month)
	}
	return t, nil
}

// SummarizeMonth folds the daily series of one month into a MonthlyClimate.
// A day counts as rainy when its precipitation is above zero.
func SummarizeMonth(month time.Time, days []DailyPrecipitation) MonthlyClimate {
	summary := MonthlyClimate{
		Month:        month.Format(MonthLayout),
		MonthName:    month.Month().String(),
		Year:         month.Year(),
		ObservedDays: len(days),
	}
	for _, d := range days {
		summary.TotalPrecipitation += d.Precipitation
		if d.Precipitation > 0 {
			summary.RainyDays++
		}
	}
	if summary.RainyDays > 0 {
		summary.AverageDaily = summary.TotalPrecipitation / float64(summary.RainyDays)
	}
	return summary
}
