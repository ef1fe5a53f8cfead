package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/config"
)

type fakeMCPClient struct {
	startErr      error
	initErr       error
	listToolsErr  error
	callToolErr   error
	pingErr       error
	closeErr      error
	tools         []mcp.Tool
	callToolReply *mcp.CallToolResult
}

func (f *fakeMCPClient) Start(ctx context.Context) error { return f.startErr }

func (f *fakeMCPClient) Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &mcp.InitializeResult{}, nil
}

func (f *fakeMCPClient) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if f.listToolsErr != nil {
		return nil, f.listToolsErr
	}
	return &mcp.ListToolsResult{Tools: f.tools}, nil
}

func (f *fakeMCPClient) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if f.callToolErr != nil {
		return nil, f.callToolErr
	}
	if f.callToolReply != nil {
		return f.callToolReply, nil
	}
	return &mcp.CallToolResult{}, nil
}

func (f *fakeMCPClient) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeMCPClient) Close() error                   { return f.closeErr }

func newReadySession(client mcpClient) *Session {
	s := NewSession(config.BackendConfig{ID: "backend-1", Transport: "stdio"}, nil)
	s.client = client
	s.state = StateReady
	return s
}

func TestSession_CallTool_Success(t *testing.T) {
	client := &fakeMCPClient{callToolReply: &mcp.CallToolResult{}}
	s := newReadySession(client)

	reply, err := s.CallTool(context.Background(), "echo", map[string]any{"x": 1})
	require.NoError(t, err)
	var decoded mcp.CallToolResult
	require.NoError(t, json.Unmarshal(reply, &decoded))
}

func TestSession_CallTool_NotReady(t *testing.T) {
	s := NewSession(config.BackendConfig{ID: "backend-1"}, nil)
	_, err := s.CallTool(context.Background(), "echo", nil)
	assert.Error(t, err)
}

func TestSession_CallTool_FailureDegradesState(t *testing.T) {
	client := &fakeMCPClient{callToolErr: errors.New("boom")}
	s := newReadySession(client)

	_, err := s.CallTool(context.Background(), "echo", nil)
	assert.Error(t, err)
	assert.Equal(t, StateDegraded, s.Status().State)
}

func TestSession_Ping_SuccessRestoresReady(t *testing.T) {
	client := &fakeMCPClient{}
	s := newReadySession(client)
	s.state = StateDegraded

	require.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, StateReady, s.Status().State)
}

func TestSession_Ping_FailureDegrades(t *testing.T) {
	client := &fakeMCPClient{pingErr: errors.New("unreachable")}
	s := newReadySession(client)

	err := s.Ping(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateDegraded, s.Status().State)
}

func TestSession_RefreshTools_PopulatesCatalog(t *testing.T) {
	client := &fakeMCPClient{tools: []mcp.Tool{{Name: "a", Description: "tool a"}, {Name: "b", Description: "tool b"}}}
	s := newReadySession(client)

	require.NoError(t, s.refreshTools(context.Background()))
	status := s.Status()
	require.Len(t, status.ToolCatalog, 2)
	assert.Equal(t, "a", status.ToolCatalog[0].Name)
}

func TestSession_Close_IsIdempotent(t *testing.T) {
	client := &fakeMCPClient{}
	s := newReadySession(client)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.Status().State)
}
