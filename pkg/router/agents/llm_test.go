package agents

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

type mockCompletionProvider struct {
	reply string
	err   error

	gotProvider, gotModel, gotPrompt string
	gotOptions                      map[string]any
}

func (m *mockCompletionProvider) Complete(ctx context.Context, provider, model, prompt string, options map[string]any) (string, error) {
	m.gotProvider, m.gotModel, m.gotPrompt, m.gotOptions = provider, model, prompt, options
	return m.reply, m.err
}

func TestLLMExecutor_Success(t *testing.T) {
	provider := &mockCompletionProvider{reply: "42"}
	e := NewLLMExecutor(provider)
	at := &router.AgentType{LLM: &router.LLMConfig{
		Provider: "acme",
		Model:    "acme-large",
		Prompt:   "what is {{question}}",
		Options:  json.RawMessage(`{"temperature":0.2}`),
	}}
	call := router.ToolCall{Arguments: map[string]any{"question": "6*7"}}

	result, err := e.Execute(context.Background(), call, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "42", result.Data)
	assert.Equal(t, "acme", provider.gotProvider)
	assert.Equal(t, "what is 6*7", provider.gotPrompt)
	assert.Equal(t, 0.2, provider.gotOptions["temperature"])
}

func TestLLMExecutor_NoProviderConfigured(t *testing.T) {
	e := NewLLMExecutor(nil)
	at := &router.AgentType{LLM: &router.LLMConfig{Provider: "acme", Prompt: "hi"}}

	_, err := e.Execute(context.Background(), router.ToolCall{}, at)
	assert.Error(t, err)
}

func TestLLMExecutor_ProviderErrorIsFailure(t *testing.T) {
	provider := &mockCompletionProvider{err: errors.New("rate limited")}
	e := NewLLMExecutor(provider)
	at := &router.AgentType{LLM: &router.LLMConfig{Provider: "acme", Prompt: "hi"}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "rate limited", result.Error)
}
