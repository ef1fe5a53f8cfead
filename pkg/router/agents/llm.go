package agents

import (
	"context"
	"encoding/json"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// CompletionProvider abstracts a single-shot LLM completion call. Concrete
// providers (OpenAI, Anthropic, local models, ...) are out of scope (§1);
// this seam lets the router dispatch to whichever provider is wired in at
// construction time without depending on any one SDK.
type CompletionProvider interface {
	Complete(ctx context.Context, provider, model, prompt string, options map[string]any) (string, error)
}

// LLMExecutor completes prompt against provider/model per §4.2.
type LLMExecutor struct {
	Provider CompletionProvider
}

// NewLLMExecutor builds an LLMExecutor over the given CompletionProvider.
func NewLLMExecutor(provider CompletionProvider) *LLMExecutor {
	return &LLMExecutor{Provider: provider}
}

// Execute implements router.Executor.
func (e *LLMExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.LLM
	if e.Provider == nil {
		return nil, merrors.New(merrors.ErrAgent, "no completion provider configured for llm agent")
	}
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	options, err := router.RenderJSON(cfg.Options, call.Arguments)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to render llm options", err)
	}
	var optMap map[string]any
	if len(options) > 0 {
		if err := json.Unmarshal(options, &optMap); err != nil {
			return nil, merrors.Wrap(merrors.ErrAgent, "failed to decode llm options", err)
		}
	}

	prompt := router.RenderString(cfg.Prompt, call.Arguments)
	reply, err := e.Provider.Complete(runCtx, cfg.Provider, cfg.Model, prompt, optMap)
	if err != nil {
		if runCtx.Err() != nil {
			return router.Failure("timed out").WithMetadata("timeout_ms", cfg.TimeoutMS), nil
		}
		return router.Failure(err.Error()), nil
	}

	return router.SuccessResult(reply), nil
}
