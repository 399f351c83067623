// Package chat answers user questions through an LLM, with the selected
// month's observed climate and the current scenario injected as context.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/reservoir-scenario-service/internal/domain"
	"github.com/couchcryptid/reservoir-scenario-service/internal/observability"
)

// ErrCompletion wraps failures of the completion backend.
var ErrCompletion = errors.New("chat completion failed")

// Completer produces the assistant reply to a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// ClimateSource provides monthly climate summaries.
type ClimateSource interface {
	Summary(month string) (domain.MonthlyClimate, error)
}

// Request is one user turn.
type Request struct {
	Message  string                `json:"message"`
	History  []domain.ChatMessage  `json:"history,omitempty"`
	Month    string                `json:"month,omitempty"`
	Scenario *domain.ScenarioInput `json:"scenario,omitempty"`
}

// Response carries the reply and the conversation including both new turns.
type Response struct {
	Reply   string               `json:"reply"`
	History []domain.ChatMessage `json:"history"`
}

// Advisor builds prompts and forwards them to a Completer.
type Advisor struct {
	completer Completer
	climate   ClimateSource
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewAdvisor creates an Advisor. climate may be nil when no observations are loaded.
func NewAdvisor(completer Completer, climate ClimateSource, metrics *observability.Metrics, logger *slog.Logger) *Advisor {
	return &Advisor{
		completer: completer,
		climate:   climate,
		metrics:   metrics,
		logger:    logger,
	}
}

// Ask answers req.Message. The system prompt is rebuilt on every turn and is
// not part of the returned history.
func (a *Advisor) Ask(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, fmt.Errorf("%w: empty chat message", domain.ErrInvalidInput)
	}
	if req.Month != "" {
		if _, err := domain.ParseMonth(req.Month); err != nil {
			return Response{}, err
		}
	}
	if req.Scenario != nil {
		if err := req.Scenario.Validate(); err != nil {
			return Response{}, err
		}
	}

	history := make([]domain.ChatMessage, 0, len(req.History)+2)
	for _, m := range req.History {
		if m.Role == domain.RoleSystem {
			continue
		}
		history = append(history, m)
	}
	history = append(history, domain.ChatMessage{Role: domain.RoleUser, Content: req.Message})

	system := SystemPrompt(domain.Now(), req.Month, req.Scenario)
	if req.Month != "" && WantsClimateData(req.Message) {
		system += a.climateContext(req.Month)
	}

	messages := append([]domain.ChatMessage{{Role: domain.RoleSystem, Content: system}}, history...)
	reply, err := a.completer.Complete(ctx, messages)
	if err != nil {
		a.metrics.ChatRequests.WithLabelValues("error").Inc()
		a.logger.Warn("chat completion failed", "error", err, "month", req.Month)
		return Response{}, fmt.Errorf("%w: %w", ErrCompletion, err)
	}
	a.metrics.ChatRequests.WithLabelValues("success").Inc()

	history = append(history, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
	return Response{Reply: reply, History: history}, nil
}

func (a *Advisor) climateContext(month string) string {
	if a.climate == nil {
		return MissingClimateBlock(month)
	}
	summary, err := a.climate.Summary(month)
	if err != nil {
		a.logger.Info("no climate data for chat context", "month", month, "error", err)
		return MissingClimateBlock(month)
	}
	return ClimateBlock(summary)
}
