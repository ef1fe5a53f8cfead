package agents

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

func sseServer(t *testing.T, events []string, delay time.Duration) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
			flusher.Flush()
			if delay > 0 {
				time.Sleep(delay)
			}
		}
	}))
}

func TestSSEExecutor_CollectsEvents(t *testing.T) {
	srv := sseServer(t, []string{"one", "two", "three"}, 0)
	defer srv.Close()

	e := NewSSEExecutor(nil)
	at := &router.AgentType{SSE: &router.SSEConfig{URL: srv.URL}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"one", "two", "three"}, result.Data)
}

func TestSSEExecutor_MaxEventsStopsEarly(t *testing.T) {
	srv := sseServer(t, []string{"one", "two", "three", "four"}, 5*time.Millisecond)
	defer srv.Close()

	e := NewSSEExecutor(nil)
	at := &router.AgentType{SSE: &router.SSEConfig{URL: srv.URL, MaxEvents: 2}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"one", "two"}, result.Data)
}

func TestSSEExecutor_EventFilter(t *testing.T) {
	srv := sseServer(t, []string{"keep:a", "drop:b", "keep:c"}, 0)
	defer srv.Close()

	e := NewSSEExecutor(nil)
	at := &router.AgentType{SSE: &router.SSEConfig{URL: srv.URL, EventFilter: "keep:"}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep:a", "keep:c"}, result.Data)
}

func TestSSEExecutor_TimeoutReturnsPartialCollection(t *testing.T) {
	srv := sseServer(t, []string{"one", "two", "three"}, 50*time.Millisecond)
	defer srv.Close()

	e := NewSSEExecutor(nil)
	at := &router.AgentType{SSE: &router.SSEConfig{URL: srv.URL, TimeoutMS: 60}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, true, result.Metadata["timed_out"])
}
