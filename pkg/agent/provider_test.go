package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderUnsupported(t *testing.T) {
	_, err := NewProvider(context.Background(), Profile{Provider: "phi", APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider")
}

func TestNewProviderGeminiRequiresKey(t *testing.T) {
	_, err := NewProvider(context.Background(), Profile{Provider: "gemini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewProviderAnthropic(t *testing.T) {
	p, err := NewProvider(context.Background(), Profile{Provider: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestNewProviderOpenAI(t *testing.T) {
	p, err := NewProvider(context.Background(), Profile{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}

func TestProviderDefaultModels(t *testing.T) {
	anthropicP := NewAnthropicProvider("k", "")
	assert.Equal(t, defaultAnthropicModel, anthropicP.model)

	openaiP := NewOpenAIProvider("k", "custom-model")
	assert.Equal(t, "custom-model", openaiP.model)
}
