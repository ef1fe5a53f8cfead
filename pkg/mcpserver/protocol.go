// Package mcpserver implements the MCP server front-end (§4.6): a single
// JSON-RPC 2.0 dispatcher reused across stdio, HTTP, WebSocket, SSE, and
// streamable-HTTP transports.
package mcpserver

import (
	"encoding/json"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// ProtocolVersion is the MCP revision this front-end implements (§4.6).
const ProtocolVersion = "2025-06-18"

// Request is the inbound JSON-RPC 2.0 envelope (§6.1). ID is kept raw so a
// string, number, or absent id all round-trip without loss; a request
// missing ID is a notification and gets no Response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether req carries no id (§6.1).
func (req *Request) IsNotification() bool {
	return len(req.ID) == 0 || string(req.ID) == "null"
}

// Response is the outbound JSON-RPC 2.0 envelope (§6.1).
type Response struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      json.RawMessage   `json:"id,omitempty"`
	Result  any               `json:"result,omitempty"`
	Error   *merrors.RPCError `json:"error,omitempty"`
}

// Notification is a server-initiated message with no id (§6.1,
// notifications/*).
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// envelopePeek distinguishes an inbound request from an inbound response:
// a response (the reply to a server-initiated sampling/createMessage or
// elicitation/create request, §4.4) carries no method.
type envelopePeek struct {
	Method *string         `json:"method"`
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

func (p envelopePeek) isResponse() bool {
	return p.Method == nil && len(p.ID) > 0 && (len(p.Result) > 0 || len(p.Error) > 0)
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string, data map[string]any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Error: &merrors.RPCError{Code: code, Message: message, Data: data}}
}

func mappedErrorResponse(id json.RawMessage, err error) *Response {
	rpcErr := merrors.ToRPCError(err)
	return &Response{JSONRPC: "2.0", ID: id, Error: &rpcErr}
}

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)
