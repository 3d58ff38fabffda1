package ensemble

// Event bus topics for the orchestration pipeline. The orchestrator
// publishes, the performance ledger consumes.
const (
	// TopicResponseScored carries one ScoredEvent per model response
	// after every orchestration run.
	TopicResponseScored = "orchestrator.response.scored"

	// TopicFeedbackReceived carries a FeedbackEvent when a caller rates
	// a previously delivered message.
	TopicFeedbackReceived = "orchestrator.feedback.received"
)

// ScoredEvent is the payload for TopicResponseScored. One event is
// published per model response, failures included.
type ScoredEvent struct {
	MessageID string
	Model     string
	Composite float64
	LatencyMS int64
	Selected  bool
	Failed    bool
}

// FeedbackEvent is the payload for TopicFeedbackReceived.
type FeedbackEvent struct {
	MessageID string
	Model     string
	Positive  bool
}
