package config

import (
	"time"
)

// Config is the root configuration for the aigo engine.
type Config struct {
	Core     CoreConfig     `mapstructure:"core" yaml:"core" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Store    StoreConfig    `mapstructure:"store" yaml:"store" validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue" yaml:"queue"`
	Progress ProgressConfig `mapstructure:"progress" yaml:"progress"`
	Tools    ToolsConfig    `mapstructure:"tools" yaml:"tools"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	HomeDir    string        `mapstructure:"home_dir" yaml:"home_dir"`
	DataDir    string        `mapstructure:"data_dir" yaml:"data_dir"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries" validate:"min=0,max=10"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"min=1s"`
	Debug      bool          `mapstructure:"debug" yaml:"debug"`
}

// LLMConfig contains model provider configuration.
type LLMConfig struct {
	// Provider selects the completion backend: openai, anthropic, ollama, or mock.
	Provider string `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=openai anthropic ollama mock"`

	// Model is the provider-specific model name.
	Model string `mapstructure:"model" yaml:"model"`

	// APIKey can be interpolated from the environment using ${VAR_NAME} syntax.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider endpoint (used by ollama and proxies).
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`

	Temperature float64       `mapstructure:"temperature" yaml:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens" validate:"min=0"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// StoreConfig contains plan store configuration.
type StoreConfig struct {
	// Driver selects the backing store: memory or sqlite.
	Driver string `mapstructure:"driver" yaml:"driver" validate:"omitempty,oneof=memory sqlite"`

	// Path is the sqlite database file (required when Driver is sqlite).
	Path string `mapstructure:"path" yaml:"path"`
}

// QueueConfig contains background job queue configuration.
type QueueConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers" validate:"min=1,max=64"`

	// StaleAfter is the inactivity window after which a running job is
	// considered stuck and revoked.
	StaleAfter time.Duration `mapstructure:"stale_after" yaml:"stale_after"`
}

// ProgressConfig contains progress tracking configuration.
type ProgressConfig struct {
	// Backend selects the progress substrate: memory or redis.
	Backend string `mapstructure:"backend" yaml:"backend" validate:"omitempty,oneof=memory redis"`

	// RedisAddr is the redis host:port (required when Backend is redis).
	RedisAddr string `mapstructure:"redis_addr" yaml:"redis_addr,omitempty"`

	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password,omitempty"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
}

// ToolsConfig contains travel data tool configuration.
type ToolsConfig struct {
	// CallTimeout bounds a single tool invocation.
	CallTimeout time.Duration `mapstructure:"call_timeout" yaml:"call_timeout"`

	// BypassThreshold is the consecutive failure count after which a tool
	// is skipped in favor of synthesized fallback data.
	BypassThreshold int `mapstructure:"bypass_threshold" yaml:"bypass_threshold" validate:"min=1,max=20"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// MetricsConfig contains metrics export configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}
