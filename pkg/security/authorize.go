// Package security implements the security hook surface (§4.9, component
// J): a single authorization callout invoked before router dispatch and
// before discovery candidate filtering. The concrete allowlist/policy
// engine behind it is a separate concern (§1, §9 Non-goals) — this
// package only defines the seam and a permissive default.
package security

import "context"

// Decision is the outcome of an authorization check (§9 "authorize(context,
// tool_name, args) -> allow|deny{reason}").
type Decision struct {
	Allow  bool
	Reason string
}

// Allowed is the zero-friction permit decision.
var Allowed = Decision{Allow: true}

// Denied builds a deny decision carrying reason.
func Denied(reason string) Decision {
	return Decision{Allow: false, Reason: reason}
}

// Context is what an authorization decision is made against (§9).
type Context struct {
	ClientID  string
	ToolName  string
	Arguments map[string]any
}

// Hook authorizes one tool call before it reaches the router or the
// discovery candidate set (§9). Concrete policy engines (allowlists,
// RBAC, pattern matchers) implement this; this package ships only the
// seam and a permissive default.
type Hook interface {
	Authorize(ctx context.Context, call Context) Decision
}

// AllowAll is a Hook that authorizes every call; the default when no
// policy engine is configured (proxy mode never constructs a Hook at
// all, per §1's runtime-mode split).
type AllowAll struct{}

// Authorize implements Hook.
func (AllowAll) Authorize(context.Context, Context) Decision { return Allowed }
