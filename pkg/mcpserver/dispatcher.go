package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/discovery"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/forwarder"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/notify"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/progress"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/prompts"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/resources"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/security"
)

// discoveryMetaTool is the well-known tool name that routes a
// natural-language request through the smart discovery engine (§4.5),
// exposed through the same tools/call method as any other tool.
const discoveryMetaTool = "smart_tool_discovery"

// RegistrySnapshot narrows *registry.Snapshot to what the dispatcher
// needs, so tests can stub it.
type RegistrySnapshot interface {
	ListVisibleTools() []registry.ResolvedTool
	Lookup(name string) (registry.ResolvedTool, bool)
}

// Forwarder forwards a backend-initiated sampling/elicitation request to
// the upstream client bound to originID (§4.4, component E). *ClientSession
// implements forwarder.UpstreamSession so it can be bound directly.
type Forwarder interface {
	Bind(originID string, session forwarder.UpstreamSession)
	Unbind(originID string)
}

// Dispatcher implements the §4.6 unified JSON-RPC dispatcher: one
// instance serves every transport, sharing the same registry snapshot,
// router, and supporting managers.
type Dispatcher struct {
	Name    string
	Version string

	Snapshot  func() RegistrySnapshot
	Router    router.Router
	Discovery *discovery.Engine // nil when smart discovery is disabled (§6.3 proxy mode)
	Resources *resources.Manager
	Prompts   *prompts.Manager
	Notify    *notify.Manager
	Progress  *progress.Tracker
	Hook      security.Hook // nil when security.Enabled is false
	Forwarder Forwarder     // nil disables the reverse sampling/elicitation path
}

// Dispatch decodes one inbound frame from session and returns the bytes
// to write back, or nil for a notification / a routed response with no
// reply owed. raw must be exactly one JSON value (transports are
// responsible for framing: one line for stdio, one frame for WebSocket,
// one line for NDJSON).
func (d *Dispatcher) Dispatch(ctx context.Context, session *ClientSession, raw []byte) []byte {
	var peek envelopePeek
	if err := json.Unmarshal(raw, &peek); err != nil {
		return encode(errorResponse(nil, codeParseError, "parse error: "+err.Error(), nil))
	}

	if peek.isResponse() {
		session.resolveResponse(peek)
		return nil
	}

	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return encode(errorResponse(nil, codeParseError, "parse error: "+err.Error(), nil))
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return encode(errorResponse(req.ID, codeInvalidRequest, "invalid request", nil))
	}

	resp := d.route(ctx, session, req)
	if req.IsNotification() {
		return nil
	}
	return encode(resp)
}

func encode(resp *Response) []byte {
	b, err := json.Marshal(resp)
	if err != nil {
		fallback, _ := json.Marshal(errorResponse(resp.ID, -32603, "internal error marshaling response", nil))
		return fallback
	}
	return b
}

func (d *Dispatcher) route(ctx context.Context, session *ClientSession, req Request) *Response {
	switch req.Method {
	case "initialize":
		return d.handleInitialize(session, req)
	case "notifications/initialized":
		return nil
	case "tools/list":
		return d.handleToolsList(req)
	case "tools/call":
		return d.handleToolsCall(ctx, session, req)
	case "resources/list":
		return d.handleResourcesList(ctx, req)
	case "resources/read":
		return d.handleResourcesRead(ctx, req)
	case "prompts/list":
		return d.handlePromptsList(ctx, req)
	case "prompts/get":
		return d.handlePromptsGet(ctx, req)
	case "sampling/createMessage":
		return d.handleSamplingCreateMessage(ctx, req)
	case "elicitation/create":
		return d.handleElicitationCreate(ctx, req)
	case "roots/list":
		return resultResponse(req.ID, map[string]any{"roots": []any{}})
	case "logging/setLevel":
		return d.handleLoggingSetLevel(session, req)
	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found: "+req.Method, map[string]any{"method": req.Method})
	}
}

type initializeParams struct {
	ProtocolVersion string                     `json:"protocolVersion"`
	Capabilities    map[string]json.RawMessage `json:"capabilities"`
	ClientInfo      mcp.Implementation         `json:"clientInfo"`
}

func (d *Dispatcher) handleInitialize(session *ClientSession, req Request) *Response {
	var params initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, codeInvalidParams, "invalid initialize params: "+err.Error(), nil)
		}
	}

	declared := declaredCapabilities{}
	caps := map[string]any{}
	has := func(key string) bool { _, ok := params.Capabilities[key]; return ok }

	// §4.6: echo only the capability keys the client itself announced,
	// and only for features this server actually supports.
	if has("tools") {
		declared.Tools = true
		caps["tools"] = map[string]any{"listChanged": true}
	}
	if has("resources") && d.Resources != nil {
		declared.Resources = true
		caps["resources"] = map[string]any{"listChanged": true}
	}
	if has("prompts") && d.Prompts != nil {
		declared.Prompts = true
		caps["prompts"] = map[string]any{"listChanged": true}
	}
	if has("logging") {
		declared.Logging = true
		caps["logging"] = map[string]any{}
	}
	if has("sampling") && d.Forwarder != nil {
		declared.Sampling = true
		caps["sampling"] = map[string]any{}
	}
	if has("elicitation") && d.Forwarder != nil {
		declared.Elicitation = true
		caps["elicitation"] = map[string]any{}
	}
	if has("roots") {
		declared.Roots = true
		caps["roots"] = map[string]any{}
	}

	session.setCapabilities(declared)

	return resultResponse(req.ID, map[string]any{
		"protocolVersion": ProtocolVersion,
		"serverInfo":      mcp.Implementation{Name: d.Name, Version: d.Version},
		"capabilities":    caps,
	})
}

func (d *Dispatcher) handleToolsList(req Request) *Response {
	snap := d.Snapshot()
	tools := snap.ListVisibleTools()
	out := make([]mcp.Tool, 0, len(tools)+1)
	for _, rt := range tools {
		out = append(out, toMCPTool(rt.Tool))
	}
	if d.Discovery != nil {
		out = append(out, discoveryToolDescriptor())
	}
	return resultResponse(req.ID, map[string]any{"tools": out})
}

func toMCPTool(tool registry.ToolDefinition) mcp.Tool {
	t := mcp.Tool{Name: tool.Name, Description: tool.Description}
	t.RawInputSchema = append(json.RawMessage(nil), tool.InputSchema...)
	if tool.Annotations != nil {
		t.Annotations = mcp.ToolAnnotation{
			Title:           tool.Annotations.Title,
			ReadOnlyHint:    &tool.Annotations.ReadOnly,
			DestructiveHint: &tool.Annotations.Destructive,
			IdempotentHint:  &tool.Annotations.Idempotent,
			OpenWorldHint:   &tool.Annotations.OpenWorld,
		}
	}
	return t
}

func discoveryToolDescriptor() mcp.Tool {
	t := mcp.Tool{
		Name:        discoveryMetaTool,
		Description: "Finds and executes the best-matching tool for a natural-language request.",
	}
	t.RawInputSchema = json.RawMessage(`{"type":"object","properties":{"request":{"type":"string"}},"required":["request"]}`)
	return t
}

type toolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, session *ClientSession, req Request) *Response {
	var params toolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid tools/call params: "+err.Error(), nil)
	}
	if params.Name == "" {
		return errorResponse(req.ID, codeInvalidParams, "tools/call requires a tool name", nil)
	}

	if d.Hook != nil {
		decision := d.Hook.Authorize(ctx, security.Context{ClientID: session.ID, ToolName: params.Name, Arguments: params.Arguments})
		if !decision.Allow {
			return mappedErrorResponse(req.ID, merrors.New(merrors.ErrAuth, "tool call denied: "+decision.Reason).WithData("tool_name", params.Name))
		}
	}

	if d.Discovery != nil && params.Name == discoveryMetaTool {
		return d.handleDiscoveryCall(ctx, session, req, params.Arguments)
	}

	snap := d.Snapshot()
	resolved, ok := snap.Lookup(params.Name)
	if !ok {
		return mappedErrorResponse(req.ID, merrors.New(merrors.ErrRouting, "unknown tool").WithData("tool_name", params.Name))
	}

	if d.Forwarder != nil {
		d.Forwarder.Bind(session.ID, session)
		defer d.Forwarder.Unbind(session.ID)
		ctx = forwarder.ContextWithOriginID(ctx, session.ID)
	}

	result, err := d.Router.Route(ctx, router.ToolCall{Name: params.Name, Arguments: params.Arguments}, resolved.Tool)
	if err != nil {
		return mappedErrorResponse(req.ID, err)
	}
	return resultResponse(req.ID, toCallToolResult(result))
}

func (d *Dispatcher) handleDiscoveryCall(ctx context.Context, session *ClientSession, req Request, args map[string]any) *Response {
	var dreq discovery.Request
	raw, _ := json.Marshal(args)
	if err := json.Unmarshal(raw, &dreq); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid smart_tool_discovery arguments: "+err.Error(), nil)
	}
	dreq.ClientID = session.ID

	result, err := d.Discovery.Discover(ctx, dreq)
	if err != nil {
		return mappedErrorResponse(req.ID, err)
	}
	payload := map[string]any{
		"selected_tool": result.Selected.Name,
		"arguments":     result.Arguments,
		"attempts":      result.Attempts,
	}
	return resultResponse(req.ID, map[string]any{
		"content": []mcp.Content{mcp.NewTextContent(mustJSON(payload))},
	})
}

func toCallToolResult(result *router.AgentResult) *mcp.CallToolResult {
	if result == nil {
		return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{mcp.NewTextContent("no result")}}
	}
	if !result.Success {
		return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{mcp.NewTextContent(result.Error)}}
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(mustJSON(result.Data))}}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func (d *Dispatcher) handleResourcesList(ctx context.Context, req Request) *Response {
	if d.Resources == nil {
		return resultResponse(req.ID, map[string]any{"resources": []any{}})
	}
	list, err := d.Resources.List(ctx)
	if err != nil {
		return mappedErrorResponse(req.ID, err)
	}
	return resultResponse(req.ID, map[string]any{"resources": list})
}

type resourceReadParams struct {
	URI string `json:"uri"`
}

func (d *Dispatcher) handleResourcesRead(ctx context.Context, req Request) *Response {
	var params resourceReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid resources/read params: "+err.Error(), nil)
	}
	if d.Resources == nil {
		return mappedErrorResponse(req.ID, merrors.New(merrors.ErrValidation, "resource not found: "+params.URI))
	}
	content, err := d.Resources.Read(ctx, params.URI)
	if err != nil {
		return mappedErrorResponse(req.ID, err)
	}
	return resultResponse(req.ID, map[string]any{"contents": []any{content}})
}

func (d *Dispatcher) handlePromptsList(ctx context.Context, req Request) *Response {
	if d.Prompts == nil {
		return resultResponse(req.ID, map[string]any{"prompts": []any{}})
	}
	list, err := d.Prompts.List(ctx)
	if err != nil {
		return mappedErrorResponse(req.ID, err)
	}
	return resultResponse(req.ID, map[string]any{"prompts": list})
}

type promptGetParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (d *Dispatcher) handlePromptsGet(ctx context.Context, req Request) *Response {
	var params promptGetParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid prompts/get params: "+err.Error(), nil)
	}
	if d.Prompts == nil {
		return mappedErrorResponse(req.ID, merrors.New(merrors.ErrValidation, "no prompt named "+params.Name))
	}
	messages, err := d.Prompts.Render(ctx, params.Name, params.Arguments)
	if err != nil {
		return mappedErrorResponse(req.ID, err)
	}
	return resultResponse(req.ID, map[string]any{"messages": messages})
}

func (d *Dispatcher) handleSamplingCreateMessage(ctx context.Context, req Request) *Response {
	var createReq mcp.CreateMessageRequest
	if err := json.Unmarshal(req.Params, &createReq.Params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid sampling/createMessage params: "+err.Error(), nil)
	}
	return mappedErrorResponse(req.ID, merrors.New(merrors.ErrForwarder, "this front-end does not originate sampling requests; sampling/createMessage is served to backends via the reverse path"))
}

func (d *Dispatcher) handleElicitationCreate(ctx context.Context, req Request) *Response {
	var elicitReq mcp.ElicitRequest
	if err := json.Unmarshal(req.Params, &elicitReq.Params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid elicitation/create params: "+err.Error(), nil)
	}
	return mappedErrorResponse(req.ID, merrors.New(merrors.ErrForwarder, "this front-end does not originate elicitation requests; elicitation/create is served to backends via the reverse path"))
}

type logLevelParams struct {
	Level string `json:"level"`
}

func (d *Dispatcher) handleLoggingSetLevel(session *ClientSession, req Request) *Response {
	var params logLevelParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(req.ID, codeInvalidParams, "invalid logging/setLevel params: "+err.Error(), nil)
	}
	session.setLogLevel(params.Level)
	return resultResponse(req.ID, map[string]any{})
}
