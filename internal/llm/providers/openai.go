package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// OpenAIProvider implements llm.Provider for OpenAI GPT models.
type OpenAIProvider struct {
	client *openai.LLM
	config llm.Config
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(cfg llm.Config) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, &types.ClassifiedError{
			Class:   types.ErrClassAuthentication,
			Message: "openai: no API key configured",
		}
	}

	opts := []openai.Option{openai.WithToken(apiKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, types.NewClassifiedError(err)
	}
	return &OpenAIProvider{client: client, config: cfg}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Complete sends a completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if req.Model == "" {
		req.Model = p.config.Model
	}
	resp, err := p.client.GenerateContent(ctx, toSchemaMessages(req.Messages), buildCallOptions(req)...)
	if err != nil {
		return nil, types.NewClassifiedError(err)
	}
	return fromContentResponse(resp, req.Model), nil
}

// Health probes the provider with a minimal completion.
func (p *OpenAIProvider) Health(ctx context.Context) types.HealthStatus {
	_, err := p.client.GenerateContent(ctx,
		toSchemaMessages([]llm.Message{{Role: llm.RoleUser, Content: "ping"}}),
		llms.WithMaxTokens(1))
	if err != nil {
		return types.Unhealthy(fmt.Sprintf("openai completion probe failed: %v", err))
	}
	return types.Healthy("openai reachable")
}
