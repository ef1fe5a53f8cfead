package registry

import "time"

// ResolvedTool pairs a tool definition with the file it was resolved from
// (§3.3).
type ResolvedTool struct {
	Tool   ToolDefinition
	Origin string
}

// OverrideEntry records one name-collision resolution across files
// (§3.3, §4.1). Shadowed lists every earlier file that defined the same
// name, not just the immediate predecessor (original_source's capability
// merge tests assert the full shadow chain is retained).
type OverrideEntry struct {
	Name      string
	Winner    string
	Shadowed  []string
}

// Metadata carries snapshot-level bookkeeping (§3.3).
type Metadata struct {
	ToolCount     int
	FileCount     int
	LoadDuration  time.Duration
	LoadTimestamp time.Time
}

// Snapshot is an immutable registry state visible to readers (§3.3). Once
// built it is never mutated; the registry swaps readers over to a new
// Snapshot rather than editing this one in place.
type Snapshot struct {
	ToolsByName map[string]ResolvedTool
	Files       []string
	Overrides   []OverrideEntry
	Metadata    Metadata
}

// ListAllTools returns every tool in the snapshot regardless of
// visibility (§4.1 "Visibility").
func (s *Snapshot) ListAllTools() []ResolvedTool {
	out := make([]ResolvedTool, 0, len(s.ToolsByName))
	for _, rt := range s.ToolsByName {
		out = append(out, rt)
	}
	return out
}

// ListVisibleTools excludes hidden and disabled tools (§4.1).
func (s *Snapshot) ListVisibleTools() []ResolvedTool {
	out := make([]ResolvedTool, 0, len(s.ToolsByName))
	for _, rt := range s.ToolsByName {
		if rt.Tool.Hidden || !rt.Tool.IsEnabled() {
			continue
		}
		out = append(out, rt)
	}
	return out
}

// Lookup finds a tool by name regardless of visibility (§4.1 "Name lookup
// ignores visibility").
func (s *Snapshot) Lookup(name string) (ResolvedTool, bool) {
	rt, ok := s.ToolsByName[name]
	return rt, ok
}
