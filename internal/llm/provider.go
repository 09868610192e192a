// Package llm abstracts the language-model backends used for intent
// extraction, plan synthesis, fallback estimation, and replan reasoning.
package llm

import (
	"context"

	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a completion request against a provider.
type Request struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	// JSONOnly asks the model to emit a single JSON document. Providers
	// that support a native JSON mode enable it; others rely on the
	// prompt plus ExtractJSON on the response.
	JSONOnly bool `json:"json_only,omitempty"`
}

// Usage reports token consumption for a single completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the provider's reply to a Request.
type Response struct {
	ID      string  `json:"id"`
	Model   string  `json:"model"`
	Content string  `json:"content"`
	Usage   Usage   `json:"usage"`
}

// Provider is the interface all LLM backends implement. Complete is a
// blocking call; callers bound it with a context deadline.
type Provider interface {
	// Name returns the provider name (e.g. "anthropic", "openai", "ollama").
	Name() string

	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Health checks provider connectivity.
	Health(ctx context.Context) types.HealthStatus
}

// Config selects and configures a provider.
type Config struct {
	Type        string  `json:"type" yaml:"type" mapstructure:"type"`
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url" mapstructure:"base_url"`
	Model       string  `json:"model,omitempty" yaml:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens" mapstructure:"max_tokens"`
}
