package router

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMiddleware struct {
	name   string
	events *[]string
	failOn string // "before" | "after" | ""
}

func (m *recordingMiddleware) BeforeExecution(mc *MiddlewareContext) error {
	*m.events = append(*m.events, m.name+":before")
	if m.failOn == "before" {
		return errors.New(m.name + " before failed")
	}
	return nil
}

func (m *recordingMiddleware) AfterExecution(mc *MiddlewareContext, result *AgentResult) error {
	*m.events = append(*m.events, m.name+":after")
	if m.failOn == "after" {
		return errors.New(m.name + " after failed")
	}
	return nil
}

func (m *recordingMiddleware) OnError(mc *MiddlewareContext, err error) error {
	*m.events = append(*m.events, m.name+":onerror")
	return nil
}

func TestChain_OrderOnSuccess(t *testing.T) {
	var events []string
	a := &recordingMiddleware{name: "a", events: &events}
	b := &recordingMiddleware{name: "b", events: &events}
	chain := NewChain(a, b)

	mc := &MiddlewareContext{ToolName: "t"}
	result, err := chain.Run(mc, func() (*AgentResult, error) {
		events = append(events, "execute")
		return SuccessResult("ok"), nil
	})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"a:before", "b:before", "execute", "b:after", "a:after"}, events)
}

func TestChain_BeforeExecutionFailureSkipsExecuteAndRunsOnError(t *testing.T) {
	var events []string
	a := &recordingMiddleware{name: "a", events: &events}
	b := &recordingMiddleware{name: "b", events: &events, failOn: "before"}
	chain := NewChain(a, b)

	mc := &MiddlewareContext{ToolName: "t"}
	executed := false
	_, err := chain.Run(mc, func() (*AgentResult, error) {
		executed = true
		return SuccessResult("ok"), nil
	})

	require.Error(t, err)
	assert.False(t, executed)
	assert.Equal(t, []string{"a:before", "b:before", "b:onerror", "a:onerror"}, events)
}

func TestChain_ExecuteErrorRunsOnErrorReverseOrder(t *testing.T) {
	var events []string
	a := &recordingMiddleware{name: "a", events: &events}
	b := &recordingMiddleware{name: "b", events: &events}
	chain := NewChain(a, b)

	mc := &MiddlewareContext{ToolName: "t"}
	_, err := chain.Run(mc, func() (*AgentResult, error) {
		events = append(events, "execute")
		return nil, errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, []string{"a:before", "b:before", "execute", "b:onerror", "a:onerror"}, events)
}
