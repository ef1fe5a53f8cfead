package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// graphQLEnvelope is the standard `{ query, variables, operationName }`
// POST body (§4.2). No GraphQL client library appears anywhere in the
// example corpus; the wire format is plain JSON over HTTP, so this
// reuses net/http directly rather than pulling in an unexercised
// dependency (see DESIGN.md).
type graphQLEnvelope struct {
	Query         string          `json:"query"`
	Variables     json.RawMessage `json:"variables,omitempty"`
	OperationName string          `json:"operationName,omitempty"`
}

// GraphQLExecutor posts a GraphQL envelope per §4.2.
type GraphQLExecutor struct {
	Client *http.Client
}

// NewGraphQLExecutor builds a GraphQLExecutor.
func NewGraphQLExecutor(client *http.Client) *GraphQLExecutor {
	if client == nil {
		client = http.DefaultClient
	}
	return &GraphQLExecutor{Client: client}
}

// Execute implements router.Executor.
func (e *GraphQLExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.GraphQL
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	variables, err := router.RenderJSON(cfg.Variables, call.Arguments)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to render GraphQL variables", err)
	}

	envelope := graphQLEnvelope{
		Query:         router.RenderString(cfg.Query, call.Arguments),
		Variables:     variables,
		OperationName: cfg.OperationName,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to marshal GraphQL envelope", err)
	}

	url := router.RenderString(cfg.URL, call.Arguments)
	req, err := http.NewRequestWithContext(runCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to build GraphQL request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range router.RenderStringMap(cfg.Headers, call.Arguments) {
		req.Header.Set(k, v)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		if runCtx.Err() != nil {
			return router.Failure("timed out").WithMetadata("timeout_ms", cfg.TimeoutMS), nil
		}
		return nil, merrors.Wrap(merrors.ErrAgent, "GraphQL request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to read GraphQL response", err)
	}

	// Presence of a non-empty "errors" array marks failure regardless of
	// HTTP status (§4.2).
	errorsField := gjson.GetBytes(body, "errors")
	hasGraphQLErrors := errorsField.IsArray() && len(errorsField.Array()) > 0

	result := &router.AgentResult{
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300 && !hasGraphQLErrors,
		Data:    string(body),
	}
	result.WithMetadata("status_code", resp.StatusCode)
	if !result.Success {
		if hasGraphQLErrors {
			result.Error = errorsField.Raw
		} else {
			result.Error = string(body)
		}
	}
	return result, nil
}
