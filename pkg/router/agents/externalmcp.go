package agents

import (
	"context"
	"encoding/json"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// BackendCaller looks up a live backend session by id and invokes a tool
// on it, forwarding to the external MCP client fleet. Routing here only
// needs the narrow "call a tool on a named backend" contract; session
// lifecycle, reconnection, and capability caching live in the fleet
// itself and are injected through this seam.
type BackendCaller interface {
	CallTool(ctx context.Context, backendID, toolName string, arguments map[string]any) (json.RawMessage, error)
}

// ExternalMCPExecutor proxies a tool call through to a backend MCP server
// session identified by backend_id (§4.2).
type ExternalMCPExecutor struct {
	Caller BackendCaller
}

// NewExternalMCPExecutor builds an ExternalMCPExecutor over the given
// BackendCaller.
func NewExternalMCPExecutor(caller BackendCaller) *ExternalMCPExecutor {
	return &ExternalMCPExecutor{Caller: caller}
}

// Execute implements router.Executor.
func (e *ExternalMCPExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.ExternalMCP
	if e.Caller == nil {
		return nil, merrors.New(merrors.ErrAgent, "no backend caller configured for external_mcp agent")
	}
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	toolName := cfg.ToolName
	if toolName == "" {
		toolName = call.Name
	}

	reply, err := e.Caller.CallTool(runCtx, cfg.BackendID, toolName, call.Arguments)
	if err != nil {
		if runCtx.Err() != nil {
			return router.Failure("timed out").WithMetadata("timeout_ms", cfg.TimeoutMS), nil
		}
		return router.Failure(err.Error()), nil
	}

	return router.SuccessResult(string(reply)).WithMetadata("backend_id", cfg.BackendID), nil
}
