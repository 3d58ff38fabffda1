package ledger

import (
	"encoding/json"
	"net/http"
)

// handleAllStats returns every model's stats, sorted by model id.
func (m *Module) handleAllStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, m.AllStats(r.Context()))
}

// handleModelStats returns one model's stats. Unseen models report
// cold-start defaults rather than 404, matching what the scorer sees.
func (m *Module) handleModelStats(w http.ResponseWriter, r *http.Request) {
	modelID := r.PathValue("model")
	if modelID == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}
	writeJSON(w, http.StatusOK, m.Stats(r.Context(), modelID))
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
