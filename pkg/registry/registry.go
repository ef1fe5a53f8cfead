package registry

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// Registry owns the current Snapshot and rebuilds it on demand. A single
// writer (Reload, or the hot-reload watcher) owns rebuilds; readers call
// Current() and hold the returned *Snapshot for as long as they need a
// consistent view (§3.3, §4.1 "Hot reload").
type Registry struct {
	roots   []string
	opts    ParseOptions
	current atomic.Pointer[Snapshot]
}

// New constructs a Registry with an empty snapshot. Call Reload to
// perform the first build.
func New(roots []string, opts ParseOptions) *Registry {
	r := &Registry{roots: roots, opts: opts}
	r.current.Store(&Snapshot{ToolsByName: map[string]ResolvedTool{}})
	return r
}

// Current returns the current, immutable snapshot.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Reload performs a full discover-parse-merge rebuild and, if it
// succeeds (or if not in strict mode), atomically swaps the snapshot.
// On failure in strict mode the previous snapshot is retained and the
// error is returned (§4.1 "Failure semantics").
func (r *Registry) Reload() error {
	started := time.Now()

	paths, err := DiscoverFiles(r.roots)
	if err != nil {
		return merrors.Wrap(merrors.ErrRegistry, "failed to discover capability files", err)
	}

	toolsByName := make(map[string]ResolvedTool)
	var overrides []OverrideEntry
	var loadedFiles []string
	shadowChains := make(map[string][]string)

	for _, path := range paths {
		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			if r.opts.Strict {
				return merrors.Wrap(merrors.ErrRegistry, "failed to read capability file "+path, readErr)
			}
			continue
		}

		file, parseErr := ParseFile(path, raw, r.opts)
		if parseErr != nil {
			if r.opts.Strict {
				return parseErr
			}
			// Non-strict: one bad file does not poison the rest of the
			// rebuild (§4.1).
			continue
		}

		loadedFiles = append(loadedFiles, path)
		for _, tool := range file.Tools {
			if existing, ok := toolsByName[tool.Name]; ok {
				shadowChains[tool.Name] = append(shadowChains[tool.Name], existing.Origin)
			}
			toolsByName[tool.Name] = ResolvedTool{Tool: tool, Origin: path}
		}
	}

	for name, shadowed := range shadowChains {
		overrides = append(overrides, OverrideEntry{
			Name:     name,
			Winner:   toolsByName[name].Origin,
			Shadowed: shadowed,
		})
	}

	snapshot := &Snapshot{
		ToolsByName: toolsByName,
		Files:       loadedFiles,
		Overrides:   overrides,
		Metadata: Metadata{
			ToolCount:     len(toolsByName),
			FileCount:     len(loadedFiles),
			LoadDuration:  time.Since(started),
			LoadTimestamp: started,
		},
	}

	r.current.Store(snapshot)
	return nil
}

// Overrides returns the override entries recorded by the most recent
// successful rebuild (§4.1 "Override resolution").
func (r *Registry) Overrides() []OverrideEntry {
	return r.Current().Overrides
}
