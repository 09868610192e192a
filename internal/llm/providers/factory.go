package providers

import (
	"fmt"

	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// New creates a provider from configuration.
func New(cfg llm.Config) (llm.Provider, error) {
	switch cfg.Type {
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "openai":
		return NewOpenAIProvider(cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	case "mock":
		return NewMockProvider("{}"), nil
	default:
		return nil, types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("unknown llm provider type %q", cfg.Type))
	}
}
