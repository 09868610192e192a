// Package providers contains the concrete llm.Provider implementations
// backed by langchaingo, plus a mock for tests.
package providers

import (
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/smithisrealdev/aigo-engine/internal/llm"
)

// toSchemaMessages converts engine messages to langchaingo MessageContent.
func toSchemaMessages(messages []llm.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case llm.RoleSystem:
			role = llms.ChatMessageTypeSystem
		case llm.RoleAssistant:
			role = llms.ChatMessageTypeAI
		default:
			role = llms.ChatMessageTypeHuman
		}
		result = append(result, llms.MessageContent{
			Role:  role,
			Parts: []llms.ContentPart{llms.TextPart(msg.Content)},
		})
	}
	return result
}

// fromContentResponse converts a langchaingo response to an engine response.
func fromContentResponse(resp *llms.ContentResponse, model string) *llm.Response {
	out := &llm.Response{
		ID:    uuid.New().String(),
		Model: model,
	}
	if resp == nil || len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Content

	if gi := choice.GenerationInfo; gi != nil {
		if v, ok := gi["PromptTokens"].(int); ok {
			out.Usage.PromptTokens = v
		}
		if v, ok := gi["CompletionTokens"].(int); ok {
			out.Usage.CompletionTokens = v
		}
		if v, ok := gi["TotalTokens"].(int); ok {
			out.Usage.TotalTokens = v
		}
	}
	if out.Usage.TotalTokens == 0 {
		out.Usage.TotalTokens = out.Usage.PromptTokens + out.Usage.CompletionTokens
	}
	return out
}

// buildCallOptions converts an engine request to langchaingo call options.
func buildCallOptions(req llm.Request) []llms.CallOption {
	opts := make([]llms.CallOption, 0, 4)
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.TopP > 0 {
		opts = append(opts, llms.WithTopP(req.TopP))
	}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.JSONOnly {
		opts = append(opts, llms.WithJSONMode())
	}
	return opts
}
