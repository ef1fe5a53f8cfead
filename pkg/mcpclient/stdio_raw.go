package mcpclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/config"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/logger"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

const codeMethodNotFound = -32601

// rawEnvelope is a peek at one inbound line, enough to classify it as a
// reply to one of this client's own outgoing calls, a backend-initiated
// request, or a notification (mirrors mcpserver's envelopePeek, from the
// other side of the connection).
type rawEnvelope struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

func (e rawEnvelope) isNotification() bool {
	return e.Method != "" && len(e.ID) == 0
}

func (e rawEnvelope) isInboundRequest() bool {
	return e.Method != "" && len(e.ID) > 0 && string(e.ID) != "null"
}

func (e rawEnvelope) isReply() bool {
	return e.Method == "" && len(e.ID) > 0
}

// rawStdioClient is a hand-rolled duplex MCP client for the stdio
// transport: it owns the subprocess and reads its stdout directly instead
// of going through mcpclientsdk, so it can observe and answer
// backend-initiated sampling/createMessage and elicitation/create requests
// (§4.4, §8 scenario 4) that a synchronous request/response wrapper would
// have no way to surface.
type rawStdioClient struct {
	backendID      string
	fwd            RequestForwarder
	currentOrigin  func() string
	onToolsChanged func()

	stdin   io.WriteCloser
	stdout  io.ReadCloser
	closeFn func() error

	writeMu sync.Mutex
	nextID  atomic.Int64

	pendingMu sync.Mutex
	pending   map[string]pendingReply

	closeOnce sync.Once
	done      chan struct{}
}

type pendingReply struct {
	resultCh chan json.RawMessage
	errCh    chan *merrors.RPCError
}

func newRawStdioClient(cfg config.BackendConfig, fwd RequestForwarder, currentOrigin func() string, onToolsChanged func()) (*rawStdioClient, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrBackend, "failed to open backend stdin", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrBackend, "failed to open backend stdout", err)
	}
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, merrors.Wrap(merrors.ErrBackend, "failed to start backend process", err)
	}

	closeFn := func() error {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return cmd.Wait()
	}
	return newRawStdioClientFromIO(cfg.ID, stdin, stdout, closeFn, fwd, currentOrigin, onToolsChanged), nil
}

// newRawStdioClientFromIO wires a rawStdioClient over an already-open duplex
// stream. newRawStdioClient builds the exec.Cmd plumbing and delegates here;
// tests build stdin/stdout from an io.Pipe and exercise the same path
// without spawning a process.
func newRawStdioClientFromIO(backendID string, stdin io.WriteCloser, stdout io.ReadCloser, closeFn func() error, fwd RequestForwarder, currentOrigin func() string, onToolsChanged func()) *rawStdioClient {
	c := &rawStdioClient{
		backendID:      backendID,
		fwd:            fwd,
		currentOrigin:  currentOrigin,
		onToolsChanged: onToolsChanged,
		stdin:          stdin,
		stdout:         stdout,
		closeFn:        closeFn,
		pending:        make(map[string]pendingReply),
		done:           make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Start is a no-op: the subprocess is already running by the time
// newRawStdioClient returns, matching the typed stdio client's behavior.
func (c *rawStdioClient) Start(ctx context.Context) error { return nil }

func (c *rawStdioClient) Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error) {
	raw, err := c.doRequest(ctx, "initialize", req.Params)
	if err != nil {
		return nil, err
	}
	var result mcp.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, merrors.Wrap(merrors.ErrProtocol, "malformed initialize result", err)
	}
	if err := c.notify("notifications/initialized", nil); err != nil {
		return nil, merrors.Wrap(merrors.ErrProtocol, "failed to send notifications/initialized", err)
	}
	return &result, nil
}

func (c *rawStdioClient) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	raw, err := c.doRequest(ctx, "tools/list", req.Params)
	if err != nil {
		return nil, err
	}
	var result mcp.ListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, merrors.Wrap(merrors.ErrProtocol, "malformed tools/list result", err)
	}
	return &result, nil
}

func (c *rawStdioClient) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := c.doRequest(ctx, "tools/call", req.Params)
	if err != nil {
		return nil, err
	}
	var result mcp.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, merrors.Wrap(merrors.ErrProtocol, "malformed tools/call result", err)
	}
	return &result, nil
}

func (c *rawStdioClient) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, "ping", nil)
	return err
}

func (c *rawStdioClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		_ = c.stdin.Close()
		err = c.closeFn()
		close(c.done)
	})
	return err
}

// doRequest sends a request this client originates and blocks for the
// matching reply, the producer-side mirror of mcpserver.ClientSession's
// doRequest.
func (c *rawStdioClient) doRequest(ctx context.Context, method string, params any) (json.RawMessage, error) {
	rawID, _ := json.Marshal(strconv.FormatInt(c.nextID.Add(1), 10))
	// Keyed by the raw JSON id, the form resolveReply looks replies up by.
	id := string(rawID)

	reply := pendingReply{resultCh: make(chan json.RawMessage, 1), errCh: make(chan *merrors.RPCError, 1)}
	c.pendingMu.Lock()
	c.pending[id] = reply
	c.pendingMu.Unlock()

	payload, err := json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Method  string          `json:"method"`
		Params  any             `json:"params,omitempty"`
	}{JSONRPC: "2.0", ID: rawID, Method: method, Params: params})
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, merrors.Wrap(merrors.ErrInternal, "failed to encode backend request", err)
	}

	if err := c.writeLine(payload); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, merrors.Wrap(merrors.ErrBackend, "failed to write backend request", err)
	}

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, merrors.Wrap(merrors.ErrBackend, "backend request timed out", ctx.Err())
	case <-c.done:
		return nil, merrors.New(merrors.ErrBackend, "backend process closed")
	case rpcErr := <-reply.errCh:
		return nil, merrors.New(merrors.ErrBackend, rpcErr.Message).WithData("code", rpcErr.Code)
	case result := <-reply.resultCh:
		return result, nil
	}
}

func (c *rawStdioClient) notify(method string, params any) error {
	payload, err := json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return err
	}
	return c.writeLine(payload)
}

func (c *rawStdioClient) writeLine(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.stdin.Write(payload); err != nil {
		return err
	}
	_, err := c.stdin.Write([]byte("\n"))
	return err
}

// readLoop classifies every line the backend writes to stdout into a
// reply to one of our own requests, a backend-initiated request that
// needs forwarding (§4.4), or a notification.
func (c *rawStdioClient) readLoop() {
	scanner := bufio.NewScanner(c.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var env rawEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			logger.Warnw("backend sent malformed line", "backend_id", c.backendID, "error", err.Error())
			continue
		}

		switch {
		case env.isReply():
			c.resolveReply(env)
		case env.isInboundRequest():
			go c.handleInboundRequest(env)
		case env.isNotification():
			c.handleNotification(env)
		}
	}
}

func (c *rawStdioClient) resolveReply(env rawEnvelope) {
	id := string(env.ID)
	c.pendingMu.Lock()
	reply, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	if !ok {
		return
	}
	if len(env.Error) > 0 {
		var rpcErr merrors.RPCError
		if err := json.Unmarshal(env.Error, &rpcErr); err != nil {
			rpcErr = merrors.RPCError{Code: -32603, Message: "malformed error response"}
		}
		reply.errCh <- &rpcErr
		return
	}
	reply.resultCh <- env.Result
}

func (c *rawStdioClient) handleNotification(env rawEnvelope) {
	if env.Method != "notifications/tools/list_changed" {
		return
	}
	logger.Infow("backend announced tools/list_changed", "backend_id", c.backendID)
	c.onToolsChanged()
}

// handleInboundRequest answers a backend-initiated sampling/createMessage
// or elicitation/create request by forwarding it to whichever upstream
// client is attributed to the call currently in flight on this session
// (§4.4's routing rule), replying -32601 for any other method.
func (c *rawStdioClient) handleInboundRequest(env rawEnvelope) {
	ctx := context.Background()

	switch env.Method {
	case "sampling/createMessage":
		c.forwardSampling(ctx, env)
	case "elicitation/create":
		c.forwardElicitation(ctx, env)
	default:
		c.replyError(env.ID, codeMethodNotFound, fmt.Sprintf("unknown server-initiated method %q", env.Method), nil)
	}
}

func (c *rawStdioClient) forwardSampling(ctx context.Context, env rawEnvelope) {
	if c.fwd == nil {
		c.replyError(env.ID, merrors.ErrForwarder.JSONRPCCode(), "no request forwarder configured for this backend", nil)
		return
	}
	var req mcp.CreateMessageRequest
	if err := json.Unmarshal(env.Params, &req.Params); err != nil {
		c.replyError(env.ID, -32602, "malformed sampling/createMessage params", nil)
		return
	}
	result, err := c.fwd.ForwardSampling(ctx, c.currentOrigin(), req)
	if err != nil {
		rpcErr := merrors.ToRPCError(err)
		c.replyError(env.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	c.replyResult(env.ID, result)
}

func (c *rawStdioClient) forwardElicitation(ctx context.Context, env rawEnvelope) {
	if c.fwd == nil {
		c.replyError(env.ID, merrors.ErrForwarder.JSONRPCCode(), "no request forwarder configured for this backend", nil)
		return
	}
	var req mcp.ElicitRequest
	if err := json.Unmarshal(env.Params, &req.Params); err != nil {
		c.replyError(env.ID, -32602, "malformed elicitation/create params", nil)
		return
	}
	result, err := c.fwd.ForwardElicitation(ctx, c.currentOrigin(), req)
	if err != nil {
		rpcErr := merrors.ToRPCError(err)
		c.replyError(env.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	c.replyResult(env.ID, result)
}

func (c *rawStdioClient) replyResult(id json.RawMessage, result any) {
	payload, err := json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  any             `json:"result"`
	}{JSONRPC: "2.0", ID: id, Result: result})
	if err != nil {
		logger.Warnw("failed to encode reply to backend-initiated request", "backend_id", c.backendID, "error", err.Error())
		return
	}
	if err := c.writeLine(payload); err != nil {
		logger.Warnw("failed to write reply to backend-initiated request", "backend_id", c.backendID, "error", err.Error())
	}
}

func (c *rawStdioClient) replyError(id json.RawMessage, code int, message string, data map[string]any) {
	payload, err := json.Marshal(struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      json.RawMessage   `json:"id"`
		Error   *merrors.RPCError `json:"error"`
	}{JSONRPC: "2.0", ID: id, Error: &merrors.RPCError{Code: code, Message: message, Data: data}})
	if err != nil {
		logger.Warnw("failed to encode error reply to backend-initiated request", "backend_id", c.backendID, "error", err.Error())
		return
	}
	if err := c.writeLine(payload); err != nil {
		logger.Warnw("failed to write error reply to backend-initiated request", "backend_id", c.backendID, "error", err.Error())
	}
}
