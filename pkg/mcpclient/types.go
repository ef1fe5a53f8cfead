// Package mcpclient manages the fleet of backend MCP server sessions
// (§4.3): one session per configured backend, handshaking, discovering
// tools, surviving reconnects, and carrying server-initiated requests
// back through the forwarder.
package mcpclient

import "time"

// State is a backend session's lifecycle state (§4.3).
type State string

const (
	StatePending    State = "Pending"
	StateConnecting State = "Connecting"
	StateReady      State = "Ready"
	StateDegraded   State = "Degraded"
	StateClosed     State = "Closed"
)

// ToolInfo is one entry of a backend's discovered tool catalog (§4.3).
type ToolInfo struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Status is the externally-observable snapshot of one backend session
// (§4.3: "{ id, transport, state, tool_catalog, last_seen, reverse_forwarder? }").
type Status struct {
	ID              string
	Transport       string
	State           State
	ToolCatalog     []ToolInfo
	LastSeen        time.Time
	ReverseForwarder bool
	LastError       string
}
