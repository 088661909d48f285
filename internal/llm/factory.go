package llm

import (
	"context"
	"fmt"
	"sync"

	"taskpilot/internal/config"
)

// New builds the provider named in the configuration.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.Timeout(),
		}), nil
	case "anthropic":
		return NewAnthropicClient(AnthropicConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.Timeout(),
		}), nil
	case "gemini":
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.Model,
			Timeout: cfg.Timeout(),
		})
	case "fake":
		return NewFakeClient(nil), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// FakeClient returns canned responses in order and is used by tests and
// the "fake" provider for offline runs. Safe for concurrent use.
type FakeClient struct {
	mu        sync.Mutex
	responses []Response
	errs      []error
	calls     int
	last      Request
}

func NewFakeClient(responses []Response) *FakeClient {
	return &FakeClient{responses: responses}
}

// Queue appends a scripted response.
func (f *FakeClient) Queue(content string) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, Response{Content: content, Model: "fake-model", TokensUsed: len(content) / 4})
	f.errs = append(f.errs, nil)
	return f
}

// QueueError appends a scripted failure.
func (f *FakeClient) QueueError(err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, Response{})
	f.errs = append(f.errs, err)
	return f
}

func (f *FakeClient) Model() string { return "fake-model" }

func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastRequest returns the most recent request for assertions.
func (f *FakeClient) LastRequest() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *FakeClient) Generate(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = req
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		return Response{}, fmt.Errorf("%w: no scripted response for call %d", ErrUnavailable, i+1)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return Response{}, f.errs[i]
	}
	return f.responses[i], nil
}
