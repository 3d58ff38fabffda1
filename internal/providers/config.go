package providers

import (
	"github.com/modelmux/modelmux/internal/providers/gemini"
	"github.com/modelmux/modelmux/internal/providers/ollama"
	"github.com/modelmux/modelmux/internal/providers/openrouter"
)

// ModuleConfig holds the providers module configuration with per-adapter
// sub-configs and the model catalog.
type ModuleConfig struct {
	OpenRouter openrouter.Config `mapstructure:"openrouter"`
	Gemini     gemini.Config     `mapstructure:"gemini"`
	Ollama     ollama.Config     `mapstructure:"ollama"`
	MaxRetries int               `mapstructure:"max_retries"`
	Models     []ModelConfig     `mapstructure:"models"`
}

// ModelConfig is one configurable catalog entry.
type ModelConfig struct {
	ID              string   `mapstructure:"id"`
	Adapter         string   `mapstructure:"adapter"` // "openrouter", "gemini", "ollama"
	UpstreamModel   string   `mapstructure:"upstream_model"`
	Specializations []string `mapstructure:"specializations"`
	Priority        int      `mapstructure:"priority"`
	Confidence      *float64 `mapstructure:"confidence"` // Optional raw confidence hint in [0,1].
}

// DefaultConfig returns the default module configuration with the built-in
// model catalog.
func DefaultConfig() ModuleConfig {
	return ModuleConfig{
		OpenRouter: openrouter.DefaultConfig(),
		Gemini:     gemini.DefaultConfig(),
		Ollama:     ollama.DefaultConfig(),
		MaxRetries: 2,
		Models:     DefaultCatalog(),
	}
}

// DefaultCatalog returns the built-in model catalog in priority order.
// Priority is the fixed tie-break used during selection; lower wins.
func DefaultCatalog() []ModelConfig {
	return []ModelConfig{
		{
			ID:              "claude",
			Adapter:         "openrouter",
			UpstreamModel:   "anthropic/claude-sonnet-4",
			Specializations: []string{"creative", "technical", "coding"},
			Priority:        1,
		},
		{
			ID:              "gpt",
			Adapter:         "openrouter",
			UpstreamModel:   "openai/gpt-4o",
			Specializations: []string{"general", "creative", "research"},
			Priority:        2,
		},
		{
			ID:              "deepseek",
			Adapter:         "openrouter",
			UpstreamModel:   "deepseek/deepseek-chat",
			Specializations: []string{"coding", "mathematical", "technical"},
			Priority:        3,
		},
		{
			ID:              "gemini",
			Adapter:         "gemini",
			UpstreamModel:   "gemini-2.0-flash",
			Specializations: []string{"general", "multilingual", "research"},
			Priority:        4,
		},
		{
			ID:              "qwen",
			Adapter:         "openrouter",
			UpstreamModel:   "qwen/qwen-2.5-72b-instruct",
			Specializations: []string{"multilingual", "coding", "general"},
			Priority:        5,
		},
		{
			ID:              "perplexity",
			Adapter:         "openrouter",
			UpstreamModel:   "perplexity/sonar",
			Specializations: []string{"research", "technical"},
			Priority:        6,
		},
		{
			ID:              "local",
			Adapter:         "ollama",
			UpstreamModel:   "qwen2.5:14b",
			Specializations: []string{"general"},
			Priority:        7,
		},
	}
}
