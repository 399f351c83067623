package model

import (
	"context"
	"sync/atomic"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

// Registry holds the model currently used for predictions. Readers never
// block; Swap publishes a new model atomically.
type Registry struct {
	current atomic.Pointer[FittedModel]
}

// NewRegistry returns a registry holding m, which may be nil.
func NewRegistry(m *FittedModel) *Registry {
	r := &Registry{}
	if m != nil {
		r.current.Store(m)
	}
	return r
}

// Current returns the active model or nil.
func (r *Registry) Current() *FittedModel {
	return r.current.Load()
}

// Swap installs m and returns the model it replaced.
func (r *Registry) Swap(m *FittedModel) *FittedModel {
	return r.current.Swap(m)
}

// CheckReadiness reports whether a model is installed.
func (r *Registry) CheckReadiness(_ context.Context) error {
	if r.current.Load() == nil {
		return domain.ErrModelNotFitted
	}
	return nil
}
