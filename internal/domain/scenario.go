package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Scenario parameter names, used in JSON payloads, range warnings and as the
// feature names of the toy storage model.
const (
	ParamPrecipitationChange = "precipitation_change_percent"
	ParamTemperatureIncrease = "temperature_increase_c"
	ParamCropAreaIncrease    = "crop_area_increase_percent"
	ParamTechnologyAdoption  = "technology_adoption_percent"
)

// ScenarioParams lists the scenario parameters in feature-vector order.
var ScenarioParams = []string{
	ParamPrecipitationChange,
	ParamTemperatureIncrease,
	ParamCropAreaIncrease,
	ParamTechnologyAdoption,
}

// ScenarioInput holds the four what-if parameters of a simulation request.
type ScenarioInput struct {
	PrecipitationChangePercent float64 `json:"precipitation_change_percent"`
	TemperatureIncreaseC       float64 `json:"temperature_increase_c"`
	CropAreaIncreasePercent    float64 `json:"crop_area_increase_percent"`
	TechnologyAdoptionPercent  float64 `json:"technology_adoption_percent"`
}

// ScenarioOutput holds the water-balance quantities derived from a ScenarioInput.
type ScenarioOutput struct {
	InflowChange  float64 `json:"inflow_change"`
	OutflowChange float64 `json:"outflow_change"`
	DemandChange  float64 `json:"demand_change"`
	StorageChange float64 `json:"storage_change"`
}

// paramRange is the documented slider range of one parameter.
type paramRange struct {
	name     string
	min, max float64
}

var paramRanges = []paramRange{
	{ParamPrecipitationChange, -50, 50},
	{ParamTemperatureIncrease, 0, 5},
	{ParamCropAreaIncrease, 0, 100},
	{ParamTechnologyAdoption, 0, 100},
}

// NewScenarioInput builds a ScenarioInput, rejecting NaN and infinite values.
func NewScenarioInput(precipChange, tempIncrease, cropAreaIncrease, techAdoption float64) (ScenarioInput, error) {
	in := ScenarioInput{
		PrecipitationChangePercent: precipChange,
		TemperatureIncreaseC:       tempIncrease,
		CropAreaIncreasePercent:    cropAreaIncrease,
		TechnologyAdoptionPercent:  techAdoption,
	}
	if err := in.Validate(); err != nil {
		return ScenarioInput{}, err
	}
	return in, nil
}

// Validate checks that every parameter is a finite number. Range is not checked.
func (in ScenarioInput) Validate() error {
	for i, v := range in.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidInput, ScenarioParams[i])
		}
	}
	return nil
}

// Vector returns the parameters in ScenarioParams order.
func (in ScenarioInput) Vector() []float64 {
	return []float64{
		in.PrecipitationChangePercent,
		in.TemperatureIncreaseC,
		in.CropAreaIncreasePercent,
		in.TechnologyAdoptionPercent,
	}
}

// RangeWarnings lists parameters outside their documented slider ranges.
func (in ScenarioInput) RangeWarnings() []string {
	var warnings []string
	for i, v := range in.Vector() {
		r := paramRanges[i]
		if v < r.min || v > r.max {
			warnings = append(warnings, fmt.Sprintf("%s=%g outside expected range [%g, %g]", r.name, v, r.min, r.max))
		}
	}
	return warnings
}

// UnmarshalJSON requires all four parameters to be present and numeric.
func (in *ScenarioInput) UnmarshalJSON(data []byte) error {
	var aux struct {
		Precip *float64 `json:"precipitation_change_percent"`
		Temp   *float64 `json:"temperature_increase_c"`
		Crop   *float64 `json:"crop_area_increase_percent"`
		Tech   *float64 `json:"technology_adoption_percent"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	fields := []*float64{aux.Precip, aux.Temp, aux.Crop, aux.Tech}
	for i, f := range fields {
		if f == nil {
			return fmt.Errorf("%w: missing %s", ErrInvalidInput, ScenarioParams[i])
		}
	}

	*in = ScenarioInput{
		PrecipitationChangePercent: *aux.Precip,
		TemperatureIncreaseC:       *aux.Temp,
		CropAreaIncreasePercent:    *aux.Crop,
		TechnologyAdoptionPercent:  *aux.Tech,
	}
	return nil
}

// Simulate runs the water-balance model. It never fails and never rejects
// out-of-range parameters.
func Simulate(in ScenarioInput) ScenarioOutput {
	inflow := 100 + in.PrecipitationChangePercent*0.5
	outflow := 100 - in.TemperatureIncreaseC*1.2
	demand := (200 + in.CropAreaIncreasePercent*0.8) * (1 - in.TechnologyAdoptionPercent/100)

	return ScenarioOutput{
		InflowChange:  inflow,
		OutflowChange: outflow,
		DemandChange:  demand,
		StorageChange: inflow - outflow - demand,
	}
}
