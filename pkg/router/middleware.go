package router

import "context"

// MiddlewareContext carries the information a middleware needs without
// exposing the full dispatcher internals (§4.2).
type MiddlewareContext struct {
	Context   context.Context
	ToolName  string
	AgentKind AgentKind
	Arguments map[string]any
}

// Middleware runs around agent execution: before_execution in
// registration order, after_execution in reverse order, on_error on
// failure paths (§4.2).
type Middleware interface {
	BeforeExecution(mc *MiddlewareContext) error
	AfterExecution(mc *MiddlewareContext, result *AgentResult) error
	OnError(mc *MiddlewareContext, err error) error
}

// Chain runs a list of Middleware around an Executor invocation.
type Chain struct {
	middlewares []Middleware
}

// NewChain constructs a Chain from the given middlewares, in the order
// BeforeExecution should run.
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Run executes fn wrapped by the chain's before/after/on-error hooks.
func (c *Chain) Run(mc *MiddlewareContext, fn func() (*AgentResult, error)) (*AgentResult, error) {
	for _, m := range c.middlewares {
		if err := m.BeforeExecution(mc); err != nil {
			c.runOnError(mc, err)
			return nil, err
		}
	}

	result, err := fn()
	if err != nil {
		c.runOnError(mc, err)
		return result, err
	}

	for i := len(c.middlewares) - 1; i >= 0; i-- {
		if afterErr := c.middlewares[i].AfterExecution(mc, result); afterErr != nil {
			// After-execution hooks observe but do not override the
			// underlying result; they run for logging/metrics side effects.
			c.runOnError(mc, afterErr)
		}
	}

	return result, nil
}

func (c *Chain) runOnError(mc *MiddlewareContext, err error) {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		_ = c.middlewares[i].OnError(mc, err)
	}
}
