package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// AnthropicProvider implements llm.Provider for Anthropic Claude models.
type AnthropicProvider struct {
	client *anthropic.LLM
	config llm.Config
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(cfg llm.Config) (*AnthropicProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, &types.ClassifiedError{
			Class:   types.ErrClassAuthentication,
			Message: "anthropic: no API key configured",
		}
	}

	opts := []anthropic.Option{anthropic.WithToken(apiKey)}
	if cfg.Model != "" {
		opts = append(opts, anthropic.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	client, err := anthropic.New(opts...)
	if err != nil {
		return nil, types.NewClassifiedError(err)
	}
	return &AnthropicProvider{client: client, config: cfg}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

// Complete sends a completion request. Anthropic has no native JSON mode,
// so JSONOnly requests lean on the prompt and response extraction.
func (p *AnthropicProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if req.Model == "" {
		req.Model = p.config.Model
	}
	jsonOnly := req.JSONOnly
	req.JSONOnly = false
	opts := buildCallOptions(req)
	req.JSONOnly = jsonOnly

	resp, err := p.client.GenerateContent(ctx, toSchemaMessages(req.Messages), opts...)
	if err != nil {
		return nil, types.NewClassifiedError(err)
	}
	return fromContentResponse(resp, req.Model), nil
}

// Health probes the provider with a minimal completion.
func (p *AnthropicProvider) Health(ctx context.Context) types.HealthStatus {
	_, err := p.client.GenerateContent(ctx,
		toSchemaMessages([]llm.Message{{Role: llm.RoleUser, Content: "ping"}}),
		llms.WithMaxTokens(1))
	if err != nil {
		return types.Unhealthy(fmt.Sprintf("anthropic completion probe failed: %v", err))
	}
	return types.Healthy("anthropic reachable")
}
