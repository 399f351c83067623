package domain

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate_Baseline(t *testing.T) {
	out := Simulate(ScenarioInput{})

	assert.Equal(t, ScenarioOutput{
		InflowChange:  100,
		OutflowChange: 100,
		DemandChange:  200,
		StorageChange: -200,
	}, out)
}

func TestSimulate_HandComputed(t *testing.T) {
	in := ScenarioInput{
		PrecipitationChangePercent: 10,
		TemperatureIncreaseC:       1.5,
		CropAreaIncreasePercent:    5,
		TechnologyAdoptionPercent:  30,
	}
	out := Simulate(in)

	inflow := 100 + 10*0.5
	outflow := 100 - 1.5*1.2
	demand := (200 + 5*0.8) * (1 - 30.0/100)
	assert.Equal(t, inflow, out.InflowChange)
	assert.Equal(t, outflow, out.OutflowChange)
	assert.Equal(t, demand, out.DemandChange)
	assert.Equal(t, inflow-outflow-demand, out.StorageChange)

	assert.InDelta(t, 105.0, out.InflowChange, 1e-9)
	assert.InDelta(t, 98.2, out.OutflowChange, 1e-9)
	assert.InDelta(t, 142.8, out.DemandChange, 1e-9)
	assert.InDelta(t, -136.0, out.StorageChange, 1e-9)
}

func TestSimulate_StorageIdentity(t *testing.T) {
	inputs := []ScenarioInput{
		{},
		{PrecipitationChangePercent: -50, TemperatureIncreaseC: 5, CropAreaIncreasePercent: 100, TechnologyAdoptionPercent: 100},
		{PrecipitationChangePercent: 50, TemperatureIncreaseC: 0.1, CropAreaIncreasePercent: 35, TechnologyAdoptionPercent: 5},
		{PrecipitationChangePercent: 17.3, TemperatureIncreaseC: 2.7, CropAreaIncreasePercent: 61, TechnologyAdoptionPercent: 44},
	}

	for _, in := range inputs {
		out := Simulate(in)
		assert.Equal(t, out.InflowChange-out.OutflowChange-out.DemandChange, out.StorageChange, "input %+v", in)
	}
}

func TestSimulate_TechnologyAdoptionReducesDemand(t *testing.T) {
	prev := math.Inf(1)
	for tech := 0.0; tech <= 100; tech += 5 {
		out := Simulate(ScenarioInput{CropAreaIncreasePercent: 40, TechnologyAdoptionPercent: tech})
		assert.Less(t, out.DemandChange, prev, "tech=%g", tech)
		prev = out.DemandChange
	}

	full := Simulate(ScenarioInput{CropAreaIncreasePercent: 40, TechnologyAdoptionPercent: 100})
	assert.Equal(t, 0.0, full.DemandChange)
}

func TestSimulate_AcceptsOutOfRange(t *testing.T) {
	in := ScenarioInput{PrecipitationChangePercent: 400, TemperatureIncreaseC: -3, CropAreaIncreasePercent: 250, TechnologyAdoptionPercent: 150}
	out := Simulate(in)

	assert.Equal(t, 300.0, out.InflowChange)
	assert.InDelta(t, 103.6, out.OutflowChange, 1e-9)
	assert.InDelta(t, -200.0, out.DemandChange, 1e-9)
	assert.Len(t, in.RangeWarnings(), 4)
}

func TestScenarioInput_RangeWarnings(t *testing.T) {
	tests := []struct {
		name     string
		in       ScenarioInput
		expected int
	}{
		{"all in range", ScenarioInput{PrecipitationChangePercent: -50, TemperatureIncreaseC: 5, CropAreaIncreasePercent: 100}, 0},
		{"precipitation too low", ScenarioInput{PrecipitationChangePercent: -51}, 1},
		{"negative temperature", ScenarioInput{TemperatureIncreaseC: -0.5}, 1},
		{"crop and tech too high", ScenarioInput{CropAreaIncreasePercent: 101, TechnologyAdoptionPercent: 120}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.in.RangeWarnings(), tt.expected)
		})
	}
}

func TestNewScenarioInput(t *testing.T) {
	in, err := NewScenarioInput(10, 1.5, 5, 30)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 1.5, 5, 30}, in.Vector())

	_, err = NewScenarioInput(math.NaN(), 0, 0, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), ParamPrecipitationChange)

	_, err = NewScenarioInput(0, 0, 0, math.Inf(-1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestScenarioInput_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr string
	}{
		{"complete", `{"precipitation_change_percent":10,"temperature_increase_c":1.5,"crop_area_increase_percent":5,"technology_adoption_percent":30}`, ""},
		{"missing parameter", `{"precipitation_change_percent":10,"temperature_increase_c":1.5,"crop_area_increase_percent":5}`, ParamTechnologyAdoption},
		{"non-numeric", `{"precipitation_change_percent":"ten","temperature_increase_c":1.5,"crop_area_increase_percent":5,"technology_adoption_percent":30}`, "invalid input"},
		{"null parameter", `{"precipitation_change_percent":null,"temperature_increase_c":1.5,"crop_area_increase_percent":5,"technology_adoption_percent":30}`, ParamPrecipitationChange},
		{"not an object", `[1,2,3,4]`, "invalid input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in ScenarioInput
			err := json.Unmarshal([]byte(tt.payload), &in)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, ScenarioInput{10, 1.5, 5, 30}, in)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
