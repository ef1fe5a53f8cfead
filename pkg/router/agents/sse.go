package agents

import (
	"bufio"
	"context"
	"net/http"
	"strings"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// SSEExecutor opens a GET stream and collects up to max_events matching
// event_filter, bounded by timeout (§4.2).
type SSEExecutor struct {
	Client *http.Client
}

// NewSSEExecutor builds an SSEExecutor.
func NewSSEExecutor(client *http.Client) *SSEExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	return &SSEExecutor{Client: client}
}

// Execute implements router.Executor.
func (e *SSEExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.SSE
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := router.RenderString(cfg.URL, call.Arguments)
	req, err := http.NewRequestWithContext(runCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to build SSE request", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	for k, v := range router.RenderStringMap(cfg.Headers, call.Arguments) {
		req.Header.Set(k, v)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		if runCtx.Err() != nil {
			return router.Failure("timed out").WithMetadata("timeout_ms", cfg.TimeoutMS), nil
		}
		return nil, merrors.Wrap(merrors.ErrAgent, "SSE request failed", err)
	}
	defer resp.Body.Close()

	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 100
	}

	events := make(chan string, maxEvents)
	done := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(resp.Body)
		collected := 0
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if cfg.EventFilter != "" && !strings.Contains(payload, cfg.EventFilter) {
				continue
			}
			events <- payload
			collected++
			if collected >= maxEvents {
				break
			}
		}
		done <- scanner.Err()
	}()

	var collected []string
	for {
		select {
		case <-runCtx.Done():
			// The reader goroutine keeps draining into the buffered
			// events channel and exits on its own once the response
			// body is closed by the deferred Close above returning.
			return router.SuccessResult(collected).WithMetadata("timed_out", true), nil
		case ev, ok := <-events:
			if !ok {
				return router.SuccessResult(collected), nil
			}
			collected = append(collected, ev)
			if len(collected) >= maxEvents {
				return router.SuccessResult(collected), nil
			}
		case err := <-done:
			if err != nil {
				return nil, merrors.Wrap(merrors.ErrAgent, "SSE stream read failed", err)
			}
			return router.SuccessResult(collected), nil
		}
	}
}
