// Package domain models the reservoir water balance and the what-if scenarios
// evaluated against it.
//
// # Scenario Parameters
//
// A scenario is four user-adjustable parameters. The documented ranges are the
// ranges offered by the dashboard sliders; they are advisory only:
//
//	precipitation_change_percent   -50 .. 50   wetter or drier conditions
//	temperature_increase_c           0 .. 5    warming, drives evaporation
//	crop_area_increase_percent       0 .. 100  irrigated area growth
//	technology_adoption_percent      0 .. 100  water-use efficiency gains
//
// # Water Balance
//
// [Simulate] applies fixed linear formulas. All quantities are volumes (m³):
//
//	inflow  = 100 + precipitation_change * 0.5
//	outflow = 100 - temperature_increase * 1.2
//	demand  = (200 + crop_area_increase * 0.8) * (1 - technology_adoption / 100)
//	storage = inflow - outflow - demand
//
// Out-of-range values are accepted and simply extrapolate the formulas;
// [ScenarioInput.RangeWarnings] reports them so callers can surface a hint.
//
// # Storage Prediction
//
// The regression estimate lives in the model package. Its feature vector for a
// scenario is [ScenarioInput.Vector], always in the order listed above.
//
// # Errors
//
// Callers distinguish failure kinds with errors.Is against [ErrInvalidInput],
// [ErrInsufficientData], [ErrModelNotFitted] and [ErrFeatureMismatch].
package domain
