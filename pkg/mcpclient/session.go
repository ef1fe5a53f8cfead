package mcpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	mcpclientsdk "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/config"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/forwarder"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/logger"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// RequestForwarder tunnels a backend-initiated request back to the
// upstream client that caused the work (§4.4, component E). Sessions
// call it when a backend emits sampling/createMessage or
// elicitation/create while a tool call is in flight. originID identifies
// the upstream client attributed to that call, not the backend.
type RequestForwarder interface {
	ForwardSampling(ctx context.Context, originID string, req mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error)
	ForwardElicitation(ctx context.Context, originID string, req mcp.ElicitRequest) (*mcp.ElicitationResult, error)
}

// mcpClient is the subset of *mcpclientsdk.Client a Session depends on,
// narrowed for testability.
type mcpClient interface {
	Start(ctx context.Context) error
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Ping(ctx context.Context) error
	Close() error
}

// Session manages one backend MCP server connection: handshake, tool
// catalog caching, health checks, and reconnection (§4.3).
type Session struct {
	cfg       config.BackendConfig
	forwarder RequestForwarder

	mu           sync.RWMutex
	client       mcpClient
	state        State
	tools        []ToolInfo
	lastErr      string
	lastSeen     time.Time
	activeOrigin string

	reconnAttempts atomic.Int32
	closed         atomic.Bool
}

// NewSession builds a Session for cfg. forwarder may be nil if no
// bidirectional sampling/elicitation support is needed for this backend.
func NewSession(cfg config.BackendConfig, forwarder RequestForwarder) *Session {
	return &Session{cfg: cfg, forwarder: forwarder, state: StatePending}
}

// ID returns the backend id this session was configured for.
func (s *Session) ID() string { return s.cfg.ID }

// Status returns a snapshot of the session's current state (§4.3).
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		ID:               s.cfg.ID,
		Transport:        s.cfg.Transport,
		State:            s.state,
		ToolCatalog:      append([]ToolInfo(nil), s.tools...),
		LastSeen:         s.lastSeen,
		ReverseForwarder: s.forwarder != nil,
		LastError:        s.lastErr,
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) setError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// Connect performs the MCP handshake and the initial tool discovery,
// transitioning Pending -> Connecting -> Ready (§4.3).
func (s *Session) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	client, err := newTransportClient(s.cfg, s.forwarder, s.currentOriginID, s.onToolsListChanged)
	if err != nil {
		s.setError(err)
		return merrors.Wrap(merrors.ErrBackend, "failed to create backend client", err)
	}

	if s.cfg.Transport != "stdio" {
		if err := client.Start(ctx); err != nil {
			_ = client.Close()
			s.setError(err)
			return merrors.Wrap(merrors.ErrBackend, "failed to start backend transport", err)
		}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "magictunnel", Version: "0.1.0"}

	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		s.setError(err)
		return merrors.Wrap(merrors.ErrBackend, "backend initialize failed", err)
	}

	s.mu.Lock()
	s.client = client
	s.mu.Unlock()

	if err := s.refreshTools(ctx); err != nil {
		s.setError(err)
		return err
	}

	s.setState(StateReady)
	s.reconnAttempts.Store(0)
	logger.Infow("backend session ready", "backend_id", s.cfg.ID, "transport", s.cfg.Transport, "tools", len(s.tools))
	return nil
}

// currentOriginID returns the upstream client id attributed to whatever
// tool call is currently in flight on this session, if any (§4.4's
// routing rule). Backend-raw transports consult this when a reverse
// sampling/elicitation request arrives mid-call.
func (s *Session) currentOriginID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeOrigin
}

// onToolsListChanged re-lists and re-merges the cached tool catalog in
// response to an unsolicited notifications/tools/list_changed from the
// backend (spec's "cache is invalidated on notifications/tools/list_changed",
// distinct from the re-list that already happens on every Connect/Reconnect).
func (s *Session) onToolsListChanged() {
	if err := s.refreshTools(context.Background()); err != nil {
		logger.Warnw("failed to refresh tool catalog after list_changed notification", "backend_id", s.cfg.ID, "error", err.Error())
		return
	}
	logger.Infow("backend tool catalog refreshed", "backend_id", s.cfg.ID, "tools", len(s.tools))
}

// refreshTools re-lists tools, e.g. in response to a notifications/tools/list_changed.
func (s *Session) refreshTools(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return merrors.New(merrors.ErrBackend, "session has no active client")
	}

	result, err := client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return merrors.Wrap(merrors.ErrBackend, "list_tools failed", err)
	}

	tools := make([]ToolInfo, 0, len(result.Tools))
	for _, t := range result.Tools {
		var schema map[string]any
		if b, err := json.Marshal(t.InputSchema); err == nil {
			_ = json.Unmarshal(b, &schema)
		}
		tools = append(tools, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}

	s.mu.Lock()
	s.tools = tools
	s.mu.Unlock()
	return nil
}

// CallTool invokes toolName on this backend (§4.3, component C's
// ExternalMCP agent kind dispatches here through Fleet.CallTool).
func (s *Session) CallTool(ctx context.Context, toolName string, arguments map[string]any) (json.RawMessage, error) {
	s.mu.RLock()
	client, state := s.client, s.state
	s.mu.RUnlock()

	if client == nil || state != StateReady {
		return nil, merrors.New(merrors.ErrBackend, fmt.Sprintf("backend %q is not ready (state=%s)", s.cfg.ID, state))
	}

	if originID, ok := forwarder.OriginIDFromContext(ctx); ok {
		s.mu.Lock()
		s.activeOrigin = originID
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.activeOrigin = ""
			s.mu.Unlock()
		}()
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = arguments

	result, err := client.CallTool(ctx, req)
	if err != nil {
		s.degrade(err)
		return nil, merrors.Wrap(merrors.ErrBackend, "backend tool call failed", err)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrBackend, "failed to marshal backend tool result", err)
	}
	return payload, nil
}

func (s *Session) degrade(err error) {
	s.setState(StateDegraded)
	s.setError(err)
}

// Ping performs a health check, marking the session Degraded on failure
// (§4.3's state machine: Ready -> Degraded on request failure). Ping does
// not reconnect; the Fleet's health loop does.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil {
		return merrors.New(merrors.ErrBackend, "session has no active client")
	}
	if err := client.Ping(ctx); err != nil {
		s.degrade(err)
		return err
	}
	s.setState(StateReady)
	return nil
}

// Reconnect retries Connect with capped exponential backoff via
// cenkalti/backoff/v5, honoring MaxReconnectAttempts (0 = unlimited).
func (s *Session) Reconnect(ctx context.Context) error {
	maxAttempts := s.cfg.MaxReconnectAttempts

	operation := func() (struct{}, error) {
		if err := s.Connect(ctx); err != nil {
			attempt := s.reconnAttempts.Add(1)
			if maxAttempts > 0 && int(attempt) >= maxAttempts {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(backoff.NewExponentialBackOff())}
	if maxAttempts > 0 {
		opts = append(opts, backoff.WithMaxTries(uint(maxAttempts)))
	}

	_, err := backoff.Retry(ctx, operation, opts...)
	return err
}

// Close shuts down the session's transport (Closed is terminal, §4.3).
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	client := s.client
	s.state = StateClosed
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// newTransportClient builds the mcpClient for cfg.Transport. stdio gets a
// hand-rolled duplex client (newRawStdioClient) since it is the transport
// the spec's reverse-forwarding design note singles out as needing direct
// access to the raw message stream; the typed mcp-go clients cover the
// remaining transports and get onToolsChanged wired through the SDK's
// own OnNotification hook.
func newTransportClient(cfg config.BackendConfig, fwd RequestForwarder, currentOrigin func() string, onToolsChanged func()) (mcpClient, error) {
	switch cfg.Transport {
	case "stdio":
		return newRawStdioClient(cfg, fwd, currentOrigin, onToolsChanged)
	case "sse":
		var opts []transport.ClientOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, mcpclientsdk.WithHeaders(cfg.Headers))
		}
		c, err := mcpclientsdk.NewSSEMCPClient(cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		c.OnNotification(notificationHandler(cfg.ID, onToolsChanged))
		return c, nil
	case "http", "streamable-http":
		var opts []transport.StreamableHTTPCOption
		if len(cfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(cfg.Headers))
		}
		c, err := mcpclientsdk.NewStreamableHttpClient(cfg.URL, opts...)
		if err != nil {
			return nil, err
		}
		c.OnNotification(notificationHandler(cfg.ID, onToolsChanged))
		return c, nil
	default:
		return nil, merrors.New(merrors.ErrConfig, "unsupported backend transport "+cfg.Transport)
	}
}

// notificationHandler reacts to the one server-initiated notification
// this layer cares about; everything else is the SDK's concern.
func notificationHandler(backendID string, onToolsChanged func()) func(mcp.JSONRPCNotification) {
	return func(n mcp.JSONRPCNotification) {
		if n.Method != "notifications/tools/list_changed" {
			return
		}
		logger.Infow("backend announced tools/list_changed", "backend_id", backendID)
		onToolsChanged()
	}
}
