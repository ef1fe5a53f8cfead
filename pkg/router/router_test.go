package router

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

type stubExecutor struct {
	result *AgentResult
	err    error
	calls  int
}

func (s *stubExecutor) Execute(ctx context.Context, call ToolCall, at *AgentType) (*AgentResult, error) {
	s.calls++
	return s.result, s.err
}

func toolWithRouting(kind registry.AgentKind, config string) registry.ToolDefinition {
	return registry.ToolDefinition{
		Name: "t",
		Routing: registry.Routing{
			Kind:   kind,
			Config: json.RawMessage(config),
		},
	}
}

func TestDefaultRouter_RoutesToRegisteredExecutor(t *testing.T) {
	exec := &stubExecutor{result: SuccessResult("ok")}
	r := NewDefaultRouter(map[AgentKind]Executor{registry.AgentHTTP: exec}, nil)

	tool := toolWithRouting(registry.AgentHTTP, `{"method":"GET","url":"http://x"}`)
	result, err := r.Route(context.Background(), ToolCall{Name: "t"}, tool)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, exec.calls)
}

func TestDefaultRouter_NoExecutorRegistered(t *testing.T) {
	r := NewDefaultRouter(map[AgentKind]Executor{}, nil)
	tool := toolWithRouting(registry.AgentHTTP, `{"method":"GET","url":"http://x"}`)

	_, err := r.Route(context.Background(), ToolCall{Name: "t"}, tool)
	assert.Error(t, err)
}

func TestDefaultRouter_BadRoutingConfigPropagatesParseError(t *testing.T) {
	r := NewDefaultRouter(map[AgentKind]Executor{}, nil)
	tool := toolWithRouting(registry.AgentHTTP, `not json`)

	_, err := r.Route(context.Background(), ToolCall{Name: "t"}, tool)
	assert.Error(t, err)
}

func TestDefaultRouter_MiddlewareWrapsExecution(t *testing.T) {
	var events []string
	mw := &recordingMiddleware{name: "m", events: &events}
	exec := &stubExecutor{result: SuccessResult("ok")}
	r := NewDefaultRouter(map[AgentKind]Executor{registry.AgentHTTP: exec}, NewChain(mw))

	tool := toolWithRouting(registry.AgentHTTP, `{"method":"GET","url":"http://x"}`)
	_, err := r.Route(context.Background(), ToolCall{Name: "t"}, tool)

	require.NoError(t, err)
	assert.Equal(t, []string{"m:before", "m:after"}, events)
}
