package ollama

import "time"

// Config holds the Ollama provider configuration.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RPS        float64       `mapstructure:"rps"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// DefaultConfig returns sensible defaults for a local Ollama server.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:11434",
		Timeout:    5 * time.Minute,
		RPS:        10,
		MaxRetries: 2,
	}
}
