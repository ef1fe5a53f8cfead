package router

import (
	"context"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

// Executor runs one parsed AgentType against a ToolCall (§4.2 "Agent
// kinds and contracts"). One Executor implementation exists per
// registry.AgentKind under pkg/router/agents.
type Executor interface {
	Execute(ctx context.Context, call ToolCall, at *AgentType) (*AgentResult, error)
}

// Router is the §4.2 contract: route(tool_call, tool_def) -> AgentResult.
type Router interface {
	Route(ctx context.Context, call ToolCall, tool registry.ToolDefinition) (*AgentResult, error)
}

// DefaultRouter parses routing.config into a typed AgentType and
// dispatches to the registered Executor, wrapped by the middleware chain.
type DefaultRouter struct {
	executors map[AgentKind]Executor
	chain     *Chain
}

// NewDefaultRouter constructs a DefaultRouter. executors maps each
// supported AgentKind to the Executor that implements it; chain may be
// nil for no middleware.
func NewDefaultRouter(executors map[AgentKind]Executor, chain *Chain) *DefaultRouter {
	if chain == nil {
		chain = NewChain()
	}
	return &DefaultRouter{executors: executors, chain: chain}
}

// Route implements Router.
func (r *DefaultRouter) Route(ctx context.Context, call ToolCall, tool registry.ToolDefinition) (*AgentResult, error) {
	at, err := ParseRoutingConfig(tool.Routing)
	if err != nil {
		return nil, err
	}

	executor, ok := r.executors[at.Kind]
	if !ok {
		return nil, merrors.New(merrors.ErrRouting, "no executor registered for agent kind "+string(at.Kind))
	}

	mc := &MiddlewareContext{Context: ctx, ToolName: call.Name, AgentKind: at.Kind, Arguments: call.Arguments}

	return r.chain.Run(mc, func() (*AgentResult, error) {
		return executor.Execute(ctx, call, at)
	})
}
