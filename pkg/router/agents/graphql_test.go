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

func TestGraphQLExecutor_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env graphQLEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		assert.Equal(t, "query { widget(id: 42) }", env.Query)
		w.Write([]byte(`{"data":{"widget":{"id":42}}}`))
	}))
	defer srv.Close()

	e := NewGraphQLExecutor(nil)
	at := &router.AgentType{GraphQL: &router.GraphQLConfig{
		URL:   srv.URL,
		Query: "query { widget(id: {{id}}) }",
	}}
	call := router.ToolCall{Arguments: map[string]any{"id": 42}}

	result, err := e.Execute(context.Background(), call, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestGraphQLExecutor_ErrorsArrayIsFailureEvenOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"errors":[{"message":"not found"}]}`))
	}))
	defer srv.Close()

	e := NewGraphQLExecutor(nil)
	at := &router.AgentType{GraphQL: &router.GraphQLConfig{URL: srv.URL, Query: "{ widget }"}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "not found")
}

func TestGraphQLExecutor_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("bad gateway"))
	}))
	defer srv.Close()

	e := NewGraphQLExecutor(nil)
	at := &router.AgentType{GraphQL: &router.GraphQLConfig{URL: srv.URL, Query: "{ widget }"}}

	result, err := e.Execute(context.Background(), router.ToolCall{}, at)
	require.NoError(t, err)
	assert.False(t, result.Success)
}
