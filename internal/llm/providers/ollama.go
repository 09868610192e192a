package providers

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// OllamaProvider implements llm.Provider for local Ollama models.
type OllamaProvider struct {
	client *ollama.LLM
	config llm.Config
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg llm.Config) (*OllamaProvider, error) {
	serverURL := cfg.BaseURL
	if serverURL == "" {
		serverURL = "http://localhost:11434"
	}

	opts := []ollama.Option{ollama.WithServerURL(serverURL)}
	if cfg.Model != "" {
		opts = append(opts, ollama.WithModel(cfg.Model))
	}

	client, err := ollama.New(opts...)
	if err != nil {
		return nil, types.NewClassifiedError(err)
	}
	return &OllamaProvider{client: client, config: cfg}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Complete sends a completion request. Ollama has no JSON mode either, so
// JSONOnly falls back to prompt discipline plus extraction.
func (p *OllamaProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
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

// Health probes the local server with a minimal completion.
func (p *OllamaProvider) Health(ctx context.Context) types.HealthStatus {
	_, err := p.client.GenerateContent(ctx,
		toSchemaMessages([]llm.Message{{Role: llm.RoleUser, Content: "ping"}}),
		llms.WithMaxTokens(1))
	if err != nil {
		return types.Unhealthy(fmt.Sprintf("ollama completion probe failed: %v", err))
	}
	return types.Healthy("ollama reachable")
}
