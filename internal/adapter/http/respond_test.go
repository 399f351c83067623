package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/reservoir-scenario-service/internal/chat"
	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("decode: %w", domain.ErrInvalidInput), http.StatusBadRequest},
		{"model not fitted", domain.ErrModelNotFitted, http.StatusServiceUnavailable},
		{"feature mismatch", fmt.Errorf("predict storage: %w", domain.ErrFeatureMismatch), http.StatusServiceUnavailable},
		{"insufficient data", domain.ErrInsufficientData, http.StatusNotFound},
		{"completion", fmt.Errorf("%w: timeout", chat.ErrCompletion), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
