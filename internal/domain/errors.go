package domain

import "errors"

var (
	// ErrInvalidInput marks a missing or non-numeric scenario parameter.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData marks a dataset that cannot support fitting or a
	// lookup with no observations behind it.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrModelNotFitted is returned when a prediction is requested before any
	// model has been fitted or loaded.
	ErrModelNotFitted = errors.New("model not fitted")

	// ErrFeatureMismatch marks a feature vector or model whose feature order or
	// cardinality disagrees with the parameters it was fitted with.
	ErrFeatureMismatch = errors.New("feature mismatch")
)
