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

type mockBackendCaller struct {
	reply json.RawMessage
	err   error

	gotBackendID, gotToolName string
	gotArguments              map[string]any
}

func (m *mockBackendCaller) CallTool(ctx context.Context, backendID, toolName string, arguments map[string]any) (json.RawMessage, error) {
	m.gotBackendID, m.gotToolName, m.gotArguments = backendID, toolName, arguments
	return m.reply, m.err
}

func TestExternalMCPExecutor_DelegatesToBackend(t *testing.T) {
	caller := &mockBackendCaller{reply: json.RawMessage(`{"content":"done"}`)}
	e := NewExternalMCPExecutor(caller)
	at := &router.AgentType{ExternalMCP: &router.ExternalMCPConfig{BackendID: "github", ToolName: "list_issues"}}
	call := router.ToolCall{Name: "gh_list_issues", Arguments: map[string]any{"repo": "x/y"}}

	result, err := e.Execute(context.Background(), call, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, `{"content":"done"}`, result.Data)
	assert.Equal(t, "github", caller.gotBackendID)
	assert.Equal(t, "list_issues", caller.gotToolName)
	assert.Equal(t, "github", result.Metadata["backend_id"])
}

func TestExternalMCPExecutor_FallsBackToCallToolName(t *testing.T) {
	caller := &mockBackendCaller{reply: json.RawMessage(`{}`)}
	e := NewExternalMCPExecutor(caller)
	at := &router.AgentType{ExternalMCP: &router.ExternalMCPConfig{BackendID: "github"}}
	call := router.ToolCall{Name: "list_issues"}

	_, err := e.Execute(context.Background(), call, at)
	require.NoError(t, err)
	assert.Equal(t, "list_issues", caller.gotToolName)
}

func TestExternalMCPExecutor_NoCallerConfigured(t *testing.T) {
	e := NewExternalMCPExecutor(nil)
	at := &router.AgentType{ExternalMCP: &router.ExternalMCPConfig{BackendID: "github"}}

	_, err := e.Execute(context.Background(), router.ToolCall{}, at)
	assert.Error(t, err)
}

func TestExternalMCPExecutor_CallerErrorIsFailure(t *testing.T) {
	caller := &mockBackendCaller{err: errors.New("backend unavailable")}
	e := NewExternalMCPExecutor(caller)
	at := &router.AgentType{ExternalMCP: &router.ExternalMCPConfig{BackendID: "github"}}

	result, err := e.Execute(context.Background(), router.ToolCall{Name: "t"}, at)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "backend unavailable", result.Error)
}
