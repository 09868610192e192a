package providers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/smithisrealdev/aigo-engine/internal/llm"
	"github.com/smithisrealdev/aigo-engine/internal/types"
)

// MockProvider implements llm.Provider for tests. Responses are returned
// in order, cycling when exhausted; every request is recorded.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	index     int
	calls     []llm.Request
	err       error
}

// NewMockProvider creates a mock that serves the given responses in order.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{responses: responses}
}

// FailWith makes every subsequent Complete call return err.
func (p *MockProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *MockProvider) Name() string { return "mock" }

// Complete returns the next configured response.
func (p *MockProvider) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)

	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, &types.ClassifiedError{
			Class:   types.ErrClassInvalidResponse,
			Message: "mock: no responses configured",
		}
	}

	content := p.responses[p.index%len(p.responses)]
	p.index++

	return &llm.Response{
		ID:      uuid.New().String(),
		Model:   req.Model,
		Content: content,
		Usage: llm.Usage{
			PromptTokens:     10,
			CompletionTokens: len(content) / 4,
			TotalTokens:      10 + len(content)/4,
		},
	}, nil
}

// Calls returns a copy of the recorded requests.
func (p *MockProvider) Calls() []llm.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]llm.Request(nil), p.calls...)
}

// Health always reports healthy.
func (p *MockProvider) Health(ctx context.Context) types.HealthStatus {
	return types.Healthy("mock")
}
