package agents

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// HTTPExecutor issues a single HTTP request per §4.2's HTTP contract.
type HTTPExecutor struct {
	Client *http.Client
}

// NewHTTPExecutor builds an HTTPExecutor with a default *http.Client when
// client is nil.
func NewHTTPExecutor(client *http.Client) *HTTPExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPExecutor{Client: client}
}

// Execute implements router.Executor.
func (e *HTTPExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.HTTP
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := router.RenderString(cfg.URL, call.Arguments)
	body, err := router.RenderJSON(cfg.Body, call.Arguments)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to render request body", err)
	}

	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(runCtx, cfg.Method, url, bodyReader)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to build HTTP request", err)
	}
	for k, v := range router.RenderStringMap(cfg.Headers, call.Arguments) {
		req.Header.Set(k, v)
	}
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		if runCtx.Err() != nil {
			return router.Failure("timed out").WithMetadata("timeout_ms", cfg.TimeoutMS), nil
		}
		return nil, merrors.Wrap(merrors.ErrAgent, "HTTP request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to read HTTP response", err)
	}

	result := &router.AgentResult{
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Data:    string(respBody),
	}
	result.WithMetadata("status_code", resp.StatusCode)
	if !result.Success {
		result.Error = string(respBody)
	}
	return result, nil
}
