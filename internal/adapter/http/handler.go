package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/couchcryptid/reservoir-scenario-service/internal/chat"
	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
	"github.com/couchcryptid/reservoir-scenario-service/internal/model"
	"github.com/couchcryptid/reservoir-scenario-service/internal/scenario"
)

const maxBodyBytes = 1 << 20

// ScenarioService evaluates scenarios against the installed model.
type ScenarioService interface {
	Evaluate(id string, in domain.ScenarioInput, source string) (domain.ScenarioResult, error)
	Model() *model.FittedModel
}

// ClimateService serves observed precipitation by month.
type ClimateService interface {
	Months() []string
	Series(month string) ([]domain.DailyPrecipitation, error)
	Summary(month string) (domain.MonthlyClimate, error)
}

// ChatService answers chat turns.
type ChatService interface {
	Ask(ctx context.Context, req chat.Request) (chat.Response, error)
}

// Handler serves the /api/v1 routes.
type Handler struct {
	scenarios ScenarioService
	climate   ClimateService
	chat      ChatService
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(scenarios ScenarioService, climate ClimateService, chat ChatService, logger *slog.Logger) *Handler {
	return &Handler{
		scenarios: scenarios,
		climate:   climate,
		chat:      chat,
		logger:    logger,
	}
}

// RegisterRoutes mounts the API on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/simulate", h.handleSimulate).Methods(http.MethodPost)
	r.HandleFunc("/model", h.handleModel).Methods(http.MethodGet)
	r.HandleFunc("/months", h.handleMonths).Methods(http.MethodGet)
	r.HandleFunc("/precipitation/{month}", h.handlePrecipitation).Methods(http.MethodGet)
	r.HandleFunc("/chat", h.handleChat).Methods(http.MethodPost)
}

// ModelInfo describes the installed model.
type ModelInfo struct {
	ID        string              `json:"id"`
	Mode      model.Mode          `json:"mode"`
	CreatedAt time.Time           `json:"created_at"`
	Features  []string            `json:"features"`
	Scaler    []model.ColumnStats `json:"scaler"`
	Report    model.Report        `json:"report"`
}

// PrecipitationResponse is the daily series of one month and its summary.
type PrecipitationResponse struct {
	Month   string                      `json:"month"`
	Summary domain.MonthlyClimate       `json:"summary"`
	Days    []domain.DailyPrecipitation `json:"days"`
}

func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var in domain.ScenarioInput
	if err := decodeBody(w, r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.scenarios.Evaluate(r.URL.Query().Get("id"), in, scenario.SourceHTTP)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, result)
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	m := h.scenarios.Model()
	if m == nil {
		h.writeError(w, r, domain.ErrModelNotFitted)
		return
	}
	h.write(w, r, http.StatusOK, ModelInfo{
		ID:        m.ID(),
		Mode:      m.Mode(),
		CreatedAt: m.CreatedAt(),
		Features:  m.Features(),
		Scaler:    m.ScalerStats(),
		Report:    m.Report(),
	})
}

func (h *Handler) handleMonths(w http.ResponseWriter, r *http.Request) {
	months := h.climate.Months()
	if months == nil {
		months = []string{}
	}
	h.write(w, r, http.StatusOK, map[string][]string{"months": months})
}

func (h *Handler) handlePrecipitation(w http.ResponseWriter, r *http.Request) {
	month := mux.Vars(r)["month"]

	days, err := h.climate.Series(month)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	summary, err := h.climate.Summary(month)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, PrecipitationResponse{Month: month, Summary: summary, Days: days})
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chat.Request
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	resp, err := h.chat.Ask(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.write(w, r, http.StatusOK, resp)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode request body: %w", domain.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, v any) {
	if err := writeResponse(w, r, status, v); err != nil {
		h.logger.Warn("write response failed", "error", err, "path", r.URL.Path)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err, "path", r.URL.Path, "status", status)
	}
	h.write(w, r, status, errorBody{Error: err.Error()})
}
