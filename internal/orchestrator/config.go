package orchestrator

import "time"

// Config holds the orchestrator module configuration.
type Config struct {
	// Timeout is the per-adapter call ceiling. A call that exceeds it is
	// reported as a timeout response with latency equal to the ceiling.
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxConcurrent bounds the number of in-flight adapter calls.
	MaxConcurrent int `mapstructure:"max_concurrent"`

	// MaxModels is how many models the query router picks when the
	// caller does not name any.
	MaxModels int `mapstructure:"max_models"`

	// MinEnsembleModels is the threshold below which an ensemble request
	// degrades to single-model selection.
	MinEnsembleModels int `mapstructure:"min_ensemble_models"`
}

// DefaultConfig returns sensible orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           30 * time.Second,
		MaxConcurrent:     8,
		MaxModels:         4,
		MinEnsembleModels: 2,
	}
}
