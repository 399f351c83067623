package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

const mmPerInch = 25.4

// climateKeywords mark a question that asks for the selected month's data.
var climateKeywords = []string{"climate data", "weather data", "data for", "information about", "tell me about"}

// WantsClimateData reports whether message asks for climate data.
func WantsClimateData(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range climateKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// SystemPrompt describes the assistant, today's date, the selected month and
// the current scenario parameters.
func SystemPrompt(today time.Time, month string, scenario *domain.ScenarioInput) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant specializing in climate science and water resource management. ")
	fmt.Fprintf(&b, "Today is %s. ", today.Format("2006-01-02"))
	b.WriteString("The user is using a Climate Resilient Reservoir Management tool.\n")

	if month == "" {
		month = "none"
	}
	fmt.Fprintf(&b, "Currently selected month: %s\n", month)
	if scenario != nil {
		b.WriteString("Current parameters:\n")
		fmt.Fprintf(&b, "- Precipitation Change: %g%%\n", scenario.PrecipitationChangePercent)
		fmt.Fprintf(&b, "- Temperature Increase: %g°C\n", scenario.TemperatureIncreaseC)
		fmt.Fprintf(&b, "- Crop Area Increase: %g%%\n", scenario.CropAreaIncreasePercent)
		fmt.Fprintf(&b, "- Technology Adoption: %g%%\n", scenario.TechnologyAdoptionPercent)
	}

	b.WriteString("Respond with specific climate data for the selected month if requested. ")
	b.WriteString("Keep responses conversational but data-driven. Format data points neatly if sharing numbers.")
	return b.String()
}

// ClimateBlock renders observed precipitation for the prompt.
func ClimateBlock(c domain.MonthlyClimate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n\nClimate data that you should incorporate into your response:\n")
	fmt.Fprintf(&b, "For %s %d (%d observed days):\n", c.MonthName, c.Year, c.ObservedDays)
	b.WriteString("Precipitation:\n")
	fmt.Fprintf(&b, "- Total precipitation: %.1f mm (%.2f in)\n", c.TotalPrecipitation, c.TotalPrecipitation/mmPerInch)
	fmt.Fprintf(&b, "- Number of rainy days: %d\n", c.RainyDays)
	fmt.Fprintf(&b, "- Average daily precipitation: %.2f mm (%.3f in)\n", c.AverageDaily, c.AverageDaily/mmPerInch)
	return b.String()
}

// MissingClimateBlock tells the model that no observations back the month.
func MissingClimateBlock(month string) string {
	return fmt.Sprintf("\n\nNo precipitation observations are available for %s. Say so instead of estimating figures.", month)
}
