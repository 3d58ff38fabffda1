// Package ensemble defines the shared domain types for multi-model response
// orchestration: queries, per-model responses, response scores, long-lived
// per-model statistics, and the orchestration result returned to callers.
package ensemble

import "time"

// Turn is one prior conversation turn supplied as query context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Query is the immutable input for one orchestration run. It is owned by
// the caller and read-only to the orchestrator.
type Query struct {
	Text     string   `json:"text"`
	Context  []Turn   `json:"context,omitempty"`
	Models   []string `json:"models,omitempty"` // Empty: the router picks models.
	Ensemble bool     `json:"ensemble"`
}

// ErrorKind classifies an adapter failure surfaced as data.
type ErrorKind string

// Adapter failure kinds. The empty string marks a successful response.
const (
	ErrorNone            ErrorKind = ""
	ErrorTimeout         ErrorKind = "timeout"
	ErrorTransport       ErrorKind = "transport"
	ErrorInvalidResponse ErrorKind = "invalid_response"
)

// ModelResponse is the outcome of one adapter invocation. The dispatcher
// creates it and it is immutable afterwards. Latency is wall-clock and is
// always populated, even on failure.
type ModelResponse struct {
	Model       string        `json:"model"`
	Content     string        `json:"content,omitempty"`
	ErrorKind   ErrorKind     `json:"error_kind,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty"`
	Latency     time.Duration `json:"latency_ns"`
	Confidence  *float64      `json:"confidence,omitempty"` // Raw provider confidence in [0,1].
}

// Failed reports whether the invocation produced no usable content.
func (r *ModelResponse) Failed() bool {
	return r.ErrorKind != ErrorNone || r.Content == ""
}

// ResponseScore is the scored view of one ModelResponse. Every component
// and the composite are normalized to [0, 10].
type ResponseScore struct {
	Model      string  `json:"model"`
	Quality    float64 `json:"quality"`
	Confidence float64 `json:"confidence"`
	History    float64 `json:"history"`
	Speed      float64 `json:"speed"`
	Composite  float64 `json:"composite"`
}

// ModelStats holds the long-lived performance record for one model
// identifier. It is created on first sight, never deleted, and mutated only
// by the performance ledger.
type ModelStats struct {
	Model            string    `json:"model"`
	AvgScore         float64   `json:"avg_score"`      // Cumulative mean of composite scores, [0,10].
	ScoreTrend       float64   `json:"score_trend"`    // EWMA of composite scores (informational).
	AvgLatencyMS     float64   `json:"avg_latency_ms"` // Cumulative mean latency.
	Invocations      int64     `json:"invocations"`
	Selections       int64     `json:"selections"`
	PositiveFeedback int64     `json:"positive_feedback"`
	NegativeFeedback int64     `json:"negative_feedback"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ColdStartScore is the neutral history default for models with no recorded
// observations. A midpoint rather than zero, so new models are not
// penalized against established ones.
const ColdStartScore = 5.0

// Result is the full orchestration outcome for one query: the winner, every
// per-model response (failures included, for transparency), and the scores
// used for selection.
type Result struct {
	MessageID string          `json:"message_id"`
	Winner    ModelResponse   `json:"winner"`
	Responses []ModelResponse `json:"responses"` // Sorted by model identifier.
	Scores    []ResponseScore `json:"scores"`    // Sorted by composite, descending.
	CreatedAt time.Time       `json:"created_at"`
}

// Feedback is a user rating of a previously delivered message, applied to
// the performance ledger.
type Feedback struct {
	MessageID string `json:"message_id"`
	Model     string `json:"model"`
	Positive  bool   `json:"positive"`
}
