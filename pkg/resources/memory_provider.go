package resources

import (
	"context"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// MemoryProvider serves resources held entirely in process memory (§4.7).
type MemoryProvider struct {
	entries map[string]memEntry
}

type memEntry struct {
	resource Resource
	content  Content
}

// NewMemoryProvider builds an empty MemoryProvider; call Put to add entries.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{entries: make(map[string]memEntry)}
}

// Put registers or replaces uri's resource metadata and content.
func (p *MemoryProvider) Put(r Resource, content Content) {
	content.URI = r.URI
	p.entries[r.URI] = memEntry{resource: r, content: content}
}

// List implements Provider.
func (p *MemoryProvider) List(_ context.Context) ([]Resource, error) {
	out := make([]Resource, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, e.resource)
	}
	return out, nil
}

// Read implements Provider.
func (p *MemoryProvider) Read(_ context.Context, uri string) (*Content, error) {
	e, ok := p.entries[uri]
	if !ok {
		return nil, merrors.New(merrors.ErrValidation, "no in-memory resource "+uri)
	}
	content := e.content
	return &content, nil
}
