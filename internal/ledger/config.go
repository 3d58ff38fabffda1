package ledger

// Config holds the ledger module configuration.
type Config struct {
	// FeedbackStep is the size of the AvgScore nudge applied per feedback
	// event, clamped so AvgScore stays inside [0,10].
	FeedbackStep float64 `mapstructure:"feedback_step"`

	// TrendAlpha is the EWMA smoothing factor for the informational
	// ScoreTrend column.
	TrendAlpha float64 `mapstructure:"trend_alpha"`
}

// DefaultConfig returns sensible ledger defaults.
func DefaultConfig() Config {
	return Config{
		FeedbackStep: 0.25,
		TrendAlpha:   0.1,
	}
}
