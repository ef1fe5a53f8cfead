// Package forwarder implements the request forwarder (§4.4, component E):
// it bridges a server-initiated request from a backend MCP server back to
// the upstream MCP client whose tool call caused the work.
package forwarder

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// UpstreamSession is the narrow surface the forwarder needs on an
// upstream MCP client connection to deliver a server-initiated request
// and receive its response (§4.4).
type UpstreamSession interface {
	RequestSampling(ctx context.Context, req mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error)
	RequestElicitation(ctx context.Context, req mcp.ElicitRequest) (*mcp.ElicitationResult, error)
}

// Forwarder routes backend-initiated requests to the upstream session
// bound to the originating tool call's origin attribution (§4.4 "Routing
// rule").
type Forwarder struct {
	mu       sync.RWMutex
	bindings map[string]UpstreamSession // origin id -> upstream session
}

// New builds an empty Forwarder.
func New() *Forwarder {
	return &Forwarder{bindings: make(map[string]UpstreamSession)}
}

// Bind associates originID (the upstream client responsible for the
// in-flight tool call) with the session that should receive any reverse
// requests it causes.
func (f *Forwarder) Bind(originID string, session UpstreamSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bindings[originID] = session
}

// Unbind removes a binding once the originating tool call completes.
func (f *Forwarder) Unbind(originID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bindings, originID)
}

// lookup returns the §4.4-mandated -32000 "no upstream session" error when
// originID has no binding. That code is reserved for ErrBackend in the
// JSON-RPC band table (§6.1), and the spec pins this exact message to it,
// so the unbound-origin case is raised as ErrBackend rather than the
// forwarder's own ErrForwarder band.
func (f *Forwarder) lookup(originID string) (UpstreamSession, error) {
	f.mu.RLock()
	session, ok := f.bindings[originID]
	f.mu.RUnlock()
	if !ok {
		return nil, merrors.New(merrors.ErrBackend, "no upstream session")
	}
	return session, nil
}

// ForwardSampling implements mcpclient.RequestForwarder for the
// sampling/createMessage reverse path (§4.4, §8 scenario 4).
func (f *Forwarder) ForwardSampling(ctx context.Context, originID string, req mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error) {
	session, err := f.lookup(originID)
	if err != nil {
		return nil, err
	}
	return session.RequestSampling(ctx, req)
}

// ForwardElicitation implements mcpclient.RequestForwarder for the
// elicitation/create reverse path (§4.4).
func (f *Forwarder) ForwardElicitation(ctx context.Context, originID string, req mcp.ElicitRequest) (*mcp.ElicitationResult, error) {
	session, err := f.lookup(originID)
	if err != nil {
		return nil, err
	}
	return session.RequestElicitation(ctx, req)
}

type originIDKey struct{}

// ContextWithOriginID attaches the upstream client id attributed to the
// in-flight tool call to ctx, so a backend session several layers down
// the router/executor call chain can recover which origin to forward a
// server-initiated sampling/elicitation request to (§4.4's routing rule).
func ContextWithOriginID(ctx context.Context, originID string) context.Context {
	return context.WithValue(ctx, originIDKey{}, originID)
}

// OriginIDFromContext recovers the id set by ContextWithOriginID.
func OriginIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(originIDKey{}).(string)
	return id, ok
}
