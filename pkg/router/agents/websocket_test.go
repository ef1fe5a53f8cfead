package agents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

func TestWebSocketExecutor_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, append([]byte("echo:"), msg...)))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	e := NewWebSocketExecutor(nil)
	at := &router.AgentType{WebSocket: &router.WebSocketConfig{URL: wsURL, Body: "hi {{name}}"}}
	call := router.ToolCall{Arguments: map[string]any{"name": "bob"}}

	result, err := e.Execute(context.Background(), call, at)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "echo:hi bob", result.Data)
}

func TestWebSocketExecutor_ConnectFailureIsError(t *testing.T) {
	e := NewWebSocketExecutor(nil)
	at := &router.AgentType{WebSocket: &router.WebSocketConfig{URL: "ws://127.0.0.1:1", TimeoutMS: 200}}

	_, err := e.Execute(context.Background(), router.ToolCall{}, at)
	assert.Error(t, err)
}
