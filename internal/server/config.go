package server

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DataDir string `mapstructure:"data_dir"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/modelmux.db")

	// Plugin defaults
	v.SetDefault("plugins.providers.enabled", true)
	v.SetDefault("plugins.providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("plugins.providers.openrouter.api_key", "")
	v.SetDefault("plugins.providers.openrouter.rps", 5.0)
	v.SetDefault("plugins.providers.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("plugins.providers.gemini.api_key", "")
	v.SetDefault("plugins.providers.gemini.rps", 5.0)
	v.SetDefault("plugins.providers.ollama.base_url", "http://localhost:11434")
	v.SetDefault("plugins.providers.ollama.rps", 10.0)
	v.SetDefault("plugins.providers.max_retries", 2)
	v.SetDefault("plugins.orchestrator.enabled", true)
	v.SetDefault("plugins.orchestrator.timeout", "30s")
	v.SetDefault("plugins.orchestrator.max_concurrent", 8)
	v.SetDefault("plugins.orchestrator.max_models", 4)
	v.SetDefault("plugins.orchestrator.min_ensemble_models", 2)
	v.SetDefault("plugins.ledger.enabled", true)
	v.SetDefault("plugins.ledger.feedback_step", 0.25)
	v.SetDefault("plugins.ledger.trend_alpha", 0.1)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("modelmux")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/modelmux")
	}

	// Environment variable support: MX_SERVER_PORT=9090
	v.SetEnvPrefix("MX")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
