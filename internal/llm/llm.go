// Package llm abstracts text-generation providers behind a single
// Generate contract. Callers select a provider through configuration
// and never branch on provider identity.
package llm

import (
	"context"
	"errors"
)

// Request is one completion call.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// Response is the raw model output plus accounting fields for the call
// ledger.
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	Metadata   map[string]any
}

// Client is the uniform interface to a text-generation capability.
// Implementations do not log; the call ledger wraps them.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Model() string
}

// Sentinel failures. Wrapped errors carry provider detail.
var (
	// ErrUnavailable covers network and auth failures.
	ErrUnavailable = errors.New("model unavailable")
	// ErrTimeout covers deadline or per-call timeout expiry.
	ErrTimeout = errors.New("model timeout")
	// ErrRejected covers content / policy refusals.
	ErrRejected = errors.New("model rejected request")
)
