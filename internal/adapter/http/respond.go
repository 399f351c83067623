package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/couchcryptid/reservoir-scenario-service/internal/chat"
	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
)

const contentTypeMsgpack = "application/x-msgpack"

// writeResponse encodes v as JSON, or as MessagePack when the request carries
// format=msgpack. Field names follow the json tags in both encodings.
func writeResponse(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if r.URL.Query().Get("format") == "msgpack" {
		w.Header().Set("Content-Type", contentTypeMsgpack)
		w.WriteHeader(status)
		enc := msgpack.NewEncoder(w)
		enc.SetCustomStructTag("json")
		return enc.Encode(v)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrModelNotFitted), errors.Is(err, domain.ErrFeatureMismatch):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrInsufficientData):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrCompletion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
