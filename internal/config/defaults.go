package config

import (
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := DefaultHomeDir()

	return &Config{
		Core: CoreConfig{
			HomeDir:    homeDir,
			DataDir:    filepath.Join(homeDir, "data"),
			MaxRetries: 3,
			Timeout:    10 * time.Minute,
			Debug:      false,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     120 * time.Second,
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   filepath.Join(homeDir, "aigo.db"),
		},
		Queue: QueueConfig{
			Workers:    4,
			StaleAfter: 30 * time.Minute,
		},
		Progress: ProgressConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
		},
		Tools: ToolsConfig{
			CallTimeout:     30 * time.Second,
			BypassThreshold: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}
