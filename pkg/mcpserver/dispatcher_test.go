package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/security"
)

type recordingSender struct {
	sent [][]byte
}

func (r *recordingSender) Send(data []byte) error {
	r.sent = append(r.sent, append([]byte(nil), data...))
	return nil
}

type stubSnapshot struct {
	tools  []registry.ResolvedTool
	lookup map[string]registry.ResolvedTool
}

func (s *stubSnapshot) ListVisibleTools() []registry.ResolvedTool { return s.tools }

func (s *stubSnapshot) Lookup(name string) (registry.ResolvedTool, bool) {
	rt, ok := s.lookup[name]
	return rt, ok
}

type stubRouter struct {
	result *router.AgentResult
	err    error
}

func (s *stubRouter) Route(ctx context.Context, call router.ToolCall, tool registry.ToolDefinition) (*router.AgentResult, error) {
	return s.result, s.err
}

func echoTool() registry.ResolvedTool {
	return registry.ResolvedTool{Tool: registry.ToolDefinition{
		Name:        "echo",
		Description: "echoes input",
		InputSchema: json.RawMessage(`{"type":"object"}`),
	}}
}

func newTestDispatcher(rt router.Router, snap *stubSnapshot, hook security.Hook) *Dispatcher {
	return &Dispatcher{
		Name:    "magictunnel",
		Version: "test",
		Snapshot: func() RegistrySnapshot {
			return snap
		},
		Router: rt,
		Hook:   hook,
	}
}

func rawReq(id, method, params string) []byte {
	if params == "" {
		return []byte(`{"jsonrpc":"2.0","id":` + id + `,"method":"` + method + `"}`)
	}
	return []byte(`{"jsonrpc":"2.0","id":` + id + `,"method":"` + method + `","params":` + params + `}`)
}

func decodeResponse(t *testing.T, raw []byte) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func TestDispatch_Initialize_EchoesDeclaredCapabilitiesOnly(t *testing.T) {
	d := newTestDispatcher(nil, &stubSnapshot{}, nil)
	session := NewClientSession("s1", &recordingSender{})

	raw := rawReq(`1`, "initialize", `{"protocolVersion":"2025-06-18","capabilities":{"tools":{},"sampling":{}},"clientInfo":{"name":"test","version":"1"}}`)
	resp := decodeResponse(t, d.Dispatch(context.Background(), session, raw))

	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	caps := result["capabilities"].(map[string]any)
	_, hasTools := caps["tools"]
	_, hasSampling := caps["sampling"]
	assert.True(t, hasTools)
	assert.False(t, hasSampling, "sampling should not be echoed when no Forwarder is configured")
}

func TestDispatch_ToolsList_OmitsDiscoveryToolWhenDisabled(t *testing.T) {
	snap := &stubSnapshot{tools: []registry.ResolvedTool{echoTool()}}
	d := newTestDispatcher(nil, snap, nil)
	session := NewClientSession("s1", &recordingSender{})

	resp := decodeResponse(t, d.Dispatch(context.Background(), session, rawReq(`2`, "tools/list", "")))
	result := resp.Result.(map[string]any)
	tools := result["tools"].([]any)
	assert.Len(t, tools, 1)
}

func TestDispatch_ToolsCall_Success(t *testing.T) {
	snap := &stubSnapshot{lookup: map[string]registry.ResolvedTool{"echo": echoTool()}}
	rt := &stubRouter{result: router.SuccessResult(map[string]any{"ok": true})}
	d := newTestDispatcher(rt, snap, nil)
	session := NewClientSession("s1", &recordingSender{})

	resp := decodeResponse(t, d.Dispatch(context.Background(), session, rawReq(`3`, "tools/call", `{"name":"echo","arguments":{}}`)))
	require.Nil(t, resp.Error)
}

func TestDispatch_ToolsCall_UnknownTool(t *testing.T) {
	snap := &stubSnapshot{lookup: map[string]registry.ResolvedTool{}}
	d := newTestDispatcher(&stubRouter{}, snap, nil)
	session := NewClientSession("s1", &recordingSender{})

	resp := decodeResponse(t, d.Dispatch(context.Background(), session, rawReq(`4`, "tools/call", `{"name":"missing","arguments":{}}`)))
	require.NotNil(t, resp.Error)
}

type denyAllHook struct{}

func (denyAllHook) Authorize(ctx context.Context, call security.Context) security.Decision {
	return security.Denied("no")
}

func TestDispatch_ToolsCall_SecurityHookDenies(t *testing.T) {
	snap := &stubSnapshot{lookup: map[string]registry.ResolvedTool{"echo": echoTool()}}
	d := newTestDispatcher(&stubRouter{result: router.SuccessResult(nil)}, snap, denyAllHook{})
	session := NewClientSession("s1", &recordingSender{})

	resp := decodeResponse(t, d.Dispatch(context.Background(), session, rawReq(`5`, "tools/call", `{"name":"echo","arguments":{}}`)))
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "denied")
}

func TestDispatch_ResourcesAndPrompts_NilSafe(t *testing.T) {
	d := newTestDispatcher(nil, &stubSnapshot{}, nil)
	session := NewClientSession("s1", &recordingSender{})

	resp := decodeResponse(t, d.Dispatch(context.Background(), session, rawReq(`6`, "resources/list", "")))
	require.Nil(t, resp.Error)
	assert.Equal(t, []any{}, resp.Result.(map[string]any)["resources"])

	resp = decodeResponse(t, d.Dispatch(context.Background(), session, rawReq(`7`, "prompts/list", "")))
	require.Nil(t, resp.Error)
	assert.Equal(t, []any{}, resp.Result.(map[string]any)["prompts"])
}

func TestDispatch_MalformedJSON_ReturnsParseError(t *testing.T) {
	d := newTestDispatcher(nil, &stubSnapshot{}, nil)
	session := NewClientSession("s1", &recordingSender{})

	resp := decodeResponse(t, d.Dispatch(context.Background(), session, []byte(`{not json`)))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeParseError, resp.Error.Code)
}

func TestDispatch_UnknownMethod_ReturnsMethodNotFound(t *testing.T) {
	d := newTestDispatcher(nil, &stubSnapshot{}, nil)
	session := NewClientSession("s1", &recordingSender{})

	resp := decodeResponse(t, d.Dispatch(context.Background(), session, rawReq(`8`, "not/a/method", "")))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestDispatch_BadParams_ReturnsInvalidParams(t *testing.T) {
	d := newTestDispatcher(nil, &stubSnapshot{}, nil)
	session := NewClientSession("s1", &recordingSender{})

	resp := decodeResponse(t, d.Dispatch(context.Background(), session, rawReq(`9`, "tools/call", `{"name":123}`)))
	require.NotNil(t, resp.Error)
	assert.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestDispatch_Notification_ProducesNoReply(t *testing.T) {
	d := newTestDispatcher(nil, &stubSnapshot{}, nil)
	session := NewClientSession("s1", &recordingSender{})

	out := d.Dispatch(context.Background(), session, []byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	assert.Nil(t, out)
}
