// Package registry implements the capability registry (§3.1-3.3, §4.1):
// a hot-reloading index of tool definitions parsed from YAML files with
// content-based override resolution and visibility filtering.
package registry

import (
	"encoding/json"
	"regexp"
)

// AgentKind enumerates the known routing targets (§3.1).
type AgentKind string

// The supported agent kinds.
const (
	AgentSubprocess  AgentKind = "subprocess"
	AgentHTTP        AgentKind = "http"
	AgentGRPC        AgentKind = "grpc"
	AgentSSE         AgentKind = "sse"
	AgentGraphQL     AgentKind = "graphql"
	AgentWebSocket   AgentKind = "websocket"
	AgentDatabase    AgentKind = "database"
	AgentLLM         AgentKind = "llm"
	AgentExternalMCP AgentKind = "external_mcp"
)

// KnownAgentKinds lists every AgentKind recognized under strict validation.
var KnownAgentKinds = map[AgentKind]bool{
	AgentSubprocess:  true,
	AgentHTTP:        true,
	AgentGRPC:        true,
	AgentSSE:         true,
	AgentGraphQL:     true,
	AgentWebSocket:   true,
	AgentDatabase:    true,
	AgentLLM:         true,
	AgentExternalMCP: true,
}

// Routing is the `{ kind, config }` pair from §3.1. Config is kept as a
// raw JSON value here; pkg/router parses it into a typed AgentKind
// variant at dispatch time.
type Routing struct {
	Kind   AgentKind       `yaml:"type" json:"type"`
	Config json.RawMessage `yaml:"config" json:"config"`
}

// Annotations carries the optional tool hints from §3.1.
type Annotations struct {
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	ReadOnly    bool   `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	Destructive bool   `yaml:"destructive,omitempty" json:"destructive,omitempty"`
	Idempotent  bool   `yaml:"idempotent,omitempty" json:"idempotent,omitempty"`
	OpenWorld   bool   `yaml:"openWorld,omitempty" json:"openWorld,omitempty"`
}

// ToolDefinition is the immutable record produced by parsing a capability
// file entry (§3.1).
type ToolDefinition struct {
	Name         string          `yaml:"name" json:"name"`
	Description  string          `yaml:"description" json:"description"`
	InputSchema  json.RawMessage `yaml:"inputSchema" json:"inputSchema"`
	Annotations  *Annotations    `yaml:"annotations,omitempty" json:"annotations,omitempty"`
	Routing      Routing         `yaml:"routing" json:"routing"`
	Hidden       bool            `yaml:"hidden,omitempty" json:"hidden,omitempty"`
	Enabled      *bool           `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	PromptRefs   []string        `yaml:"prompt_refs,omitempty" json:"prompt_refs,omitempty"`
	ResourceRefs []string        `yaml:"resource_refs,omitempty" json:"resource_refs,omitempty"`
}

// IsEnabled returns the effective enabled state; unset means enabled (§3.1).
func (t *ToolDefinition) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// nameRe enforces §3.1's identifier invariant: [A-Za-z_][A-Za-z0-9_]*.
var nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name satisfies the §3.1 identifier invariant.
func ValidName(name string) bool {
	return nameRe.MatchString(name)
}

// FileMetadata is the optional `metadata` block of a capability file (§3.2).
type FileMetadata struct {
	Name        string   `yaml:"name,omitempty" json:"name,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string   `yaml:"version,omitempty" json:"version,omitempty"`
	Author      string   `yaml:"author,omitempty" json:"author,omitempty"`
	Tags        []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// CapabilityFile is the top-level shape of a parsed capability YAML file
// (§3.2, §6.2).
type CapabilityFile struct {
	Metadata *FileMetadata    `yaml:"metadata,omitempty" json:"metadata,omitempty"`
	Tools    []ToolDefinition `yaml:"tools" json:"tools"`

	// Origin is the discovered path this file was parsed from; preserved
	// through reload (§3.2).
	Origin string `yaml:"-" json:"-"`
}
