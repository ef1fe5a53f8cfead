package mcpserver

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// declaredCapabilities records which top-level capability keys a client
// announced in `initialize`, so the echoed capabilities object only
// contains what the client itself declared (§4.6 "A client's declared
// capabilities are intersected").
type declaredCapabilities struct {
	Tools       bool
	Resources   bool
	Prompts     bool
	Logging     bool
	Sampling    bool
	Elicitation bool
	Roots       bool
}

// pendingReply is a slot waiting for the response to a server-initiated
// request (§4.4's reverse sampling/elicitation path).
type pendingReply struct {
	resultCh chan json.RawMessage
	errCh    chan *merrors.RPCError
}

// Sender writes one framed outbound message to a connected client. Each
// transport supplies its own: a line write for stdio, a text frame for
// WebSocket, an SSE `data:` block, or an NDJSON line for streamable-HTTP.
type Sender interface {
	Send(data []byte) error
}

// ClientSession is one connected MCP client, tracked across the lifetime
// of its transport connection (§4.6, §4.4). It implements
// forwarder.UpstreamSession so a backend-initiated sampling/elicitation
// request can be tunneled out to this exact client and its reply matched
// back by id.
type ClientSession struct {
	ID string

	mu           sync.Mutex
	sender       Sender
	caps         declaredCapabilities
	logLevel     string
	initialized  bool
	nextID       atomic.Int64
	pending      map[string]pendingReply
}

// NewClientSession builds a session that writes outbound frames through
// sender.
func NewClientSession(id string, sender Sender) *ClientSession {
	return &ClientSession{ID: id, sender: sender, pending: make(map[string]pendingReply), logLevel: "info"}
}

func (s *ClientSession) setCapabilities(c declaredCapabilities) {
	s.mu.Lock()
	s.caps = c
	s.initialized = true
	s.mu.Unlock()
}

func (s *ClientSession) declared() declaredCapabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

func (s *ClientSession) setLogLevel(level string) {
	s.mu.Lock()
	s.logLevel = level
	s.mu.Unlock()
}

// resolveResponse delivers an inbound JSON-RPC response to whichever
// pending server-initiated request matches its id (§4.4 reverse path).
func (s *ClientSession) resolveResponse(peek envelopePeek) {
	id := string(peek.ID)
	s.mu.Lock()
	reply, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	if len(peek.Error) > 0 {
		var rpcErr merrors.RPCError
		if err := json.Unmarshal(peek.Error, &rpcErr); err != nil {
			rpcErr = merrors.RPCError{Code: codeInvalidParams, Message: "malformed error response"}
		}
		reply.errCh <- &rpcErr
		return
	}
	reply.resultCh <- peek.Result
}

// doRequest sends a server-initiated JSON-RPC request to this client and
// blocks for the matching response or ctx cancellation.
func (s *ClientSession) doRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	rawID, _ := json.Marshal(strconv.FormatInt(s.nextID.Add(1), 10))
	// Keyed by the raw JSON id, the form resolveResponse looks replies up by.
	id := string(rawID)

	reply := pendingReply{resultCh: make(chan json.RawMessage, 1), errCh: make(chan *merrors.RPCError, 1)}
	s.mu.Lock()
	s.pending[id] = reply
	s.mu.Unlock()

	payload, err := json.Marshal(Request{JSONRPC: "2.0", ID: rawID, Method: method, Params: mustRawParams(params)})
	if err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, merrors.Wrap(merrors.ErrInternal, "failed to encode server-initiated request", err)
	}

	if err := s.sender.Send(payload); err != nil {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, merrors.Wrap(merrors.ErrProtocol, "failed to deliver server-initiated request", err)
	}

	select {
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		return nil, merrors.Wrap(merrors.ErrAgent, "server-initiated request timed out", ctx.Err())
	case rpcErr := <-reply.errCh:
		return nil, merrors.New(merrors.ErrBackend, rpcErr.Message).WithData("code", rpcErr.Code)
	case result := <-reply.resultCh:
		return result, nil
	}
}

func mustRawParams(params any) json.RawMessage {
	if params == nil {
		return nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return raw
}

// RequestSampling implements forwarder.UpstreamSession (§4.4).
func (s *ClientSession) RequestSampling(ctx context.Context, req mcp.CreateMessageRequest) (*mcp.CreateMessageResult, error) {
	raw, err := s.doRequest(ctx, "sampling/createMessage", req.Params)
	if err != nil {
		return nil, err
	}
	var result mcp.CreateMessageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, merrors.Wrap(merrors.ErrProtocol, "malformed sampling/createMessage result", err)
	}
	return &result, nil
}

// RequestElicitation implements forwarder.UpstreamSession (§4.4).
func (s *ClientSession) RequestElicitation(ctx context.Context, req mcp.ElicitRequest) (*mcp.ElicitationResult, error) {
	raw, err := s.doRequest(ctx, "elicitation/create", req.Params)
	if err != nil {
		return nil, err
	}
	var result mcp.ElicitationResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, merrors.Wrap(merrors.ErrProtocol, "malformed elicitation/create result", err)
	}
	return &result, nil
}
