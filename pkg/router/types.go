// Package router implements the agent router and middleware chain (§4.2):
// a typed dispatcher that turns a tool call into an execution against one
// of the supported agent kinds, with parameter templating and a
// before/after/on-error middleware chain.
package router

import (
	"encoding/json"
	"time"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

// ToolCall is an inbound `tools/call` invocation resolved to a concrete
// tool (§4.2).
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// AgentResult is the outcome of dispatching a ToolCall to an agent (§4.2).
type AgentResult struct {
	Success  bool
	Data     any
	Error    string
	Metadata map[string]any
}

// WithMetadata sets a metadata key and returns the receiver for chaining.
func (r *AgentResult) WithMetadata(key string, value any) *AgentResult {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
	return r
}

// Failure builds a failed AgentResult carrying an error message.
func Failure(message string) *AgentResult {
	return &AgentResult{Success: false, Error: message}
}

// SuccessResult builds a successful AgentResult carrying data.
func SuccessResult(data any) *AgentResult {
	return &AgentResult{Success: true, Data: data}
}

// AgentType is the tagged-variant parse of a registry.Routing.Config,
// one member per registry.AgentKind (§4.2, design note "Dynamic routing
// config payloads").
type AgentType struct {
	Kind AgentKind

	Subprocess  *SubprocessConfig
	HTTP        *HTTPConfig
	GRPC        *GRPCConfig
	SSE         *SSEConfig
	GraphQL     *GraphQLConfig
	WebSocket   *WebSocketConfig
	Database    *DatabaseConfig
	LLM         *LLMConfig
	ExternalMCP *ExternalMCPConfig
}

// AgentKind re-exports registry.AgentKind so callers need not import both
// packages for the same concept.
type AgentKind = registry.AgentKind

// SubprocessConfig is the §4.2 subprocess agent contract.
type SubprocessConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	TimeoutMS int             `json:"timeout"`
}

// HTTPConfig is the §4.2 HTTP agent contract.
type HTTPConfig struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers"`
	Body      json.RawMessage   `json:"body"`
	TimeoutMS int               `json:"timeout"`
}

// GRPCConfig is the §4.2 gRPC agent contract.
type GRPCConfig struct {
	Endpoint  string          `json:"endpoint"`
	Service   string          `json:"service"`
	Method    string          `json:"method"`
	Request   json.RawMessage `json:"request"`
	TimeoutMS int             `json:"timeout"`
	Insecure  bool            `json:"insecure"`
}

// SSEConfig is the §4.2 SSE agent contract.
type SSEConfig struct {
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	MaxEvents   int               `json:"max_events"`
	EventFilter string            `json:"event_filter"`
	TimeoutMS   int               `json:"timeout"`
}

// GraphQLConfig is the §4.2 GraphQL agent contract.
type GraphQLConfig struct {
	URL           string            `json:"url"`
	Query         string            `json:"query"`
	Variables     json.RawMessage   `json:"variables"`
	OperationName string            `json:"operationName"`
	Headers       map[string]string `json:"headers"`
	TimeoutMS     int               `json:"timeout"`
}

// WebSocketConfig is the §4.2 WebSocket agent contract.
type WebSocketConfig struct {
	URL       string `json:"url"`
	Body      string `json:"body"`
	TimeoutMS int    `json:"timeout"`
}

// DatabaseConfig is the §4.2 database agent contract.
type DatabaseConfig struct {
	DBType           string `json:"db_type"` // sqlite|postgres
	ConnectionString string `json:"connection_string"`
	Query            string `json:"query"`
	TimeoutMS        int    `json:"timeout"`
}

// LLMConfig is the §4.2 LLM agent contract; the concrete provider is an
// abstract dependency injected at construction time (§1 scope).
type LLMConfig struct {
	Provider  string          `json:"provider"`
	Model     string          `json:"model"`
	Prompt    string          `json:"prompt"`
	TimeoutMS int             `json:"timeout"`
	Options   json.RawMessage `json:"options"`
}

// ExternalMCPConfig is the §4.2 external_mcp agent contract.
type ExternalMCPConfig struct {
	BackendID string `json:"backend_id"`
	ToolName  string `json:"tool_name"`
	TimeoutMS int     `json:"timeout"`
}

// EffectiveTimeout returns a time.Duration for a millisecond field,
// defaulting to 30s when unset (0).
func EffectiveTimeout(ms int) time.Duration {
	if ms <= 0 {
		return 30 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}
