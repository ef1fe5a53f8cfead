package agents

import (
	"context"

	"github.com/gorilla/websocket"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// WebSocketExecutor connects, sends one text frame, and awaits one frame
// back (§4.2).
type WebSocketExecutor struct {
	Dialer *websocket.Dialer
}

// NewWebSocketExecutor builds a WebSocketExecutor with the default dialer
// when dialer is nil.
func NewWebSocketExecutor(dialer *websocket.Dialer) *WebSocketExecutor {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &WebSocketExecutor{Dialer: dialer}
}

// Execute implements router.Executor.
func (e *WebSocketExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.WebSocket
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := router.RenderString(cfg.URL, call.Arguments)
	conn, _, err := e.Dialer.DialContext(runCtx, url, nil)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to connect websocket", err)
	}
	defer conn.Close()

	body := router.RenderString(cfg.Body, call.Arguments)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(body)); err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to write websocket frame", err)
	}

	type readResult struct {
		data []byte
		err  error
	}
	resultCh := make(chan readResult, 1)
	go func() {
		_, data, err := conn.ReadMessage()
		resultCh <- readResult{data: data, err: err}
	}()

	select {
	case <-runCtx.Done():
		return router.Failure("timed out").WithMetadata("timeout_ms", cfg.TimeoutMS), nil
	case r := <-resultCh:
		if r.err != nil {
			return nil, merrors.Wrap(merrors.ErrAgent, "failed to read websocket frame", r.err)
		}
		return router.SuccessResult(string(r.data)), nil
	}
}
