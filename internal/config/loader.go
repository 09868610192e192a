package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// ConfigLoader handles loading configuration from files.
type ConfigLoader interface {
	Load(path string) (*Config, error)
	LoadWithDefaults(path string) (*Config, error)
}

// viperConfigLoader implements ConfigLoader using Viper.
type viperConfigLoader struct {
	validator ConfigValidator
}

// NewConfigLoader creates a new ConfigLoader instance.
func NewConfigLoader(validator ConfigValidator) ConfigLoader {
	return &viperConfigLoader{
		validator: validator,
	}
}

// Load loads configuration from the specified file path.
// Returns an error if the file doesn't exist or cannot be parsed.
func (l *viperConfigLoader) Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	for key, value := range defaultSettings() {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Interpolate ${VAR_NAME} references before unmarshaling so that
	// secrets like api keys never need to live in the file itself.
	interpolated, ok := interpolateEnvVars(v.AllSettings()).(map[string]interface{})
	if ok {
		if err := v.MergeConfigMap(interpolated); err != nil {
			return nil, fmt.Errorf("failed to apply environment variable interpolation: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.validator.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration.
func (l *viperConfigLoader) LoadWithDefaults(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := l.validator.Validate(cfg); err != nil {
			return nil, fmt.Errorf("default configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	return l.Load(path)
}

// defaultSettings flattens DefaultConfig into viper keys so that a partial
// config file inherits defaults for everything it omits.
func defaultSettings() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"core.home_dir":            d.Core.HomeDir,
		"core.data_dir":            d.Core.DataDir,
		"core.max_retries":         d.Core.MaxRetries,
		"core.timeout":             d.Core.Timeout,
		"llm.provider":             d.LLM.Provider,
		"llm.model":                d.LLM.Model,
		"llm.temperature":          d.LLM.Temperature,
		"llm.max_tokens":           d.LLM.MaxTokens,
		"llm.timeout":              d.LLM.Timeout,
		"store.driver":           d.Store.Driver,
		"store.path":             d.Store.Path,
		"queue.workers":          d.Queue.Workers,
		"queue.stale_after":      d.Queue.StaleAfter,
		"progress.backend":       d.Progress.Backend,
		"progress.redis_addr":    d.Progress.RedisAddr,
		"tools.call_timeout":     d.Tools.CallTimeout,
		"tools.bypass_threshold": d.Tools.BypassThreshold,
		"logging.level":          d.Logging.Level,
		"logging.format":         d.Logging.Format,
		"metrics.enabled":        d.Metrics.Enabled,
		"metrics.port":           d.Metrics.Port,
	}
}

// interpolateEnvVars recursively interpolates environment variables in the config map.
// Supports ${VAR_NAME} syntax.
func interpolateEnvVars(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})
		for key, value := range v {
			result[key] = interpolateEnvVars(value)
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, value := range v {
			result[i] = interpolateEnvVars(value)
		}
		return result
	case string:
		return interpolateString(v)
	default:
		return v
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// interpolateString replaces ${VAR_NAME} with environment variable values.
func interpolateString(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		// Unset variables keep the original placeholder.
		return match
	})
}
