// Package discovery implements the smart discovery engine (§4.5): the
// smart_tool_discovery meta-tool that scores, selects, and dispatches a
// natural-language request against the registry's visible tool set.
package discovery

import "github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"

// Request is the smart_tool_discovery input (§4.5).
type Request struct {
	Text                string         `json:"request"`
	Context             map[string]any `json:"context,omitempty"`
	PreferredTools      []string       `json:"preferred_tools,omitempty"`
	ConfidenceThreshold *float64       `json:"confidence_threshold,omitempty"`
	IncludeErrorDetails bool           `json:"include_error_details,omitempty"`
	SequentialMode      *bool          `json:"sequential_mode,omitempty"`

	// ClientID identifies the caller for security-hook filtering of the
	// candidate set (§4.5 step 1, §9).
	ClientID string `json:"-"`
}

// Candidate is one scored tool under consideration (§4.5 step 2).
type Candidate struct {
	Tool      registry.ToolDefinition
	Semantic  float64
	Rule      float64
	LLM       float64
	Score     float64
	Rationale string
}

// Result is the outcome of a full discovery pipeline run (§4.5).
type Result struct {
	Selected   *registry.ToolDefinition
	Arguments  map[string]any
	Candidates []Candidate
	Attempts   []Attempt
}

// Attempt records one candidate tried in sequential mode (§4.5 step 6).
type Attempt struct {
	ToolName string
	Success  bool
	Error    string
}
