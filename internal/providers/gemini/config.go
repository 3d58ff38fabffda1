package gemini

import "time"

// Config holds the Google Gemini provider configuration.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RPS        float64       `mapstructure:"rps"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// DefaultConfig returns sensible defaults for Gemini.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta",
		Timeout:    2 * time.Minute,
		RPS:        5,
		MaxRetries: 2,
	}
}
