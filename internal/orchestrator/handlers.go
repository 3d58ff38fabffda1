package orchestrator

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/modelmux/modelmux/pkg/ensemble"
	"github.com/modelmux/modelmux/pkg/plugin"
	"go.uber.org/zap"
)

// QueryRequest is the body for POST /query.
type QueryRequest struct {
	Text     string          `json:"text"`
	Context  []ensemble.Turn `json:"context,omitempty"`
	Models   []string        `json:"models,omitempty"`
	Ensemble bool            `json:"ensemble"`
}

// FeedbackRequest is the body for POST /feedback.
type FeedbackRequest struct {
	MessageID string `json:"message_id"`
	Model     string `json:"model"`
	Positive  bool   `json:"positive"`
}

// handleQuery runs the orchestration pipeline and returns the full result,
// failed responses and scores included.
func (m *Module) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	result, err := m.Orchestrate(r.Context(), ensemble.Query{
		Text:     req.Text,
		Context:  req.Context,
		Models:   req.Models,
		Ensemble: req.Ensemble,
	})

	switch {
	case errors.Is(err, ensemble.ErrUnknownModel):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ensemble.ErrNoViableResponse):
		writeError(w, http.StatusBadGateway, "no model produced a usable response")
		return
	case err != nil:
		m.logger.Error("orchestration failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "orchestration failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleFeedback accepts a rating for a previously delivered message and
// forwards it to the ledger via the event bus.
func (m *Module) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MessageID == "" || req.Model == "" {
		writeError(w, http.StatusBadRequest, "message_id and model are required")
		return
	}

	m.bus.PublishAsync(r.Context(), plugin.Event{
		Topic:     ensemble.TopicFeedbackReceived,
		Source:    "orchestrator",
		Timestamp: time.Now().UTC(),
		Payload: ensemble.FeedbackEvent{
			MessageID: req.MessageID,
			Model:     req.Model,
			Positive:  req.Positive,
		},
	})

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://modelmux.dev/problems/" + http.StatusText(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
