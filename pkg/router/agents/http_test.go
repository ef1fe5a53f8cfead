package agents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

func TestHTTPExecutor_SuccessEchoesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer alice", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	e := NewHTTPExecutor(nil)
	at := &router.AgentType{HTTP: &router.HTTPConfig{
		Method:  http.MethodGet,
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer {{user}}"},
	}}
	call := router.ToolCall{Arguments: map[string]any{"user": "alice"}}

	result, err := e.Execute(context.Background(), call, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, `{"ok":true}`, result.Data)
	assert.Equal(t, http.StatusOK, result.Metadata["status_code"])
}

func TestHTTPExecutor_NonTwoXXIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	e := NewHTTPExecutor(nil)
	at := &router.AgentType{HTTP: &router.HTTPConfig{Method: http.MethodGet, URL: srv.URL}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "boom", result.Error)
}

func TestHTTPExecutor_RendersJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var doc map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&doc))
		assert.Equal(t, "42", doc["id"])
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := NewHTTPExecutor(nil)
	at := &router.AgentType{HTTP: &router.HTTPConfig{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   json.RawMessage(`{"id":"{{id}}"}`),
	}}
	call := router.ToolCall{Arguments: map[string]any{"id": 42}}

	result, err := e.Execute(context.Background(), call, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestHTTPExecutor_TimesOut(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer func() {
		close(blocked)
		srv.Close()
	}()

	e := NewHTTPExecutor(nil)
	at := &router.AgentType{HTTP: &router.HTTPConfig{Method: http.MethodGet, URL: srv.URL, TimeoutMS: 20}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "timed out", result.Error)
}
