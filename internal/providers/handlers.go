package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/modelmux/modelmux/pkg/aimodel"
)

// ModelTestResponse is the result of a live round trip to one catalog model.
type ModelTestResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Model     string `json:"model,omitempty"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
}

// handleListModels returns the model catalog in priority order.
func (m *Module) handleListModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, m.Models())
}

// handleTestModel sends a short prompt through one catalog model and
// reports whether the round trip succeeded.
func (m *Module) handleTestModel(w http.ResponseWriter, r *http.Request) {
	modelID := r.PathValue("model")

	entry, ok := m.catalog[modelID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown model: "+modelID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := entry.provider.Chat(ctx,
		[]aimodel.Message{{Role: aimodel.RoleUser, Content: "Reply with the single word: ok"}},
		aimodel.WithModel(entry.info.UpstreamModel),
		aimodel.WithMaxTokens(8),
	)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		writeJSON(w, http.StatusOK, ModelTestResponse{
			Success:   false,
			Message:   "request failed: " + err.Error(),
			Model:     modelID,
			LatencyMS: latency,
		})
		return
	}

	writeJSON(w, http.StatusOK, ModelTestResponse{
		Success:   true,
		Message:   "connected (" + resp.Model + ")",
		Model:     modelID,
		LatencyMS: latency,
	})
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
