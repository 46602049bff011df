package agent

import (
	"context"
	"fmt"
)

// Request contains the parameters for one provider call.
type Request struct {
	Model  string
	System string
	Prompt string
}

// Stream yields response text fragments. Recv returns io.EOF once the
// provider has finished the response.
type Stream interface {
	Recv() (string, error)
}

// Provider is an LLM API provider with streaming output.
type Provider interface {
	// Stream starts a streaming completion for the request.
	Stream(ctx context.Context, req Request) (Stream, error)

	// Name returns the provider name.
	Name() string
}

// Profile selects and authenticates a provider.
type Profile struct {
	Provider string // gemini, anthropic, openai
	APIKey   string
	Model    string
}

// NewProvider creates an LLM provider from a profile.
func NewProvider(ctx context.Context, profile Profile) (Provider, error) {
	switch profile.Provider {
	case "gemini":
		return NewGeminiProvider(ctx, profile.APIKey, profile.Model)
	case "anthropic":
		return NewAnthropicProvider(profile.APIKey, profile.Model), nil
	case "openai":
		return NewOpenAIProvider(profile.APIKey, profile.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", profile.Provider)
	}
}
