package resources

import (
	"context"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// Manager holds an ordered list of Providers (§4.7). List merges every
// provider's results with stable dedup by URI, first provider wins; Read
// is dispatched to the first provider that owns the URI.
type Manager struct {
	providers []Provider
}

// NewManager builds a Manager over providers, in priority order.
func NewManager(providers ...Provider) *Manager {
	return &Manager{providers: providers}
}

// List returns the deduplicated, merged resource catalog (§4.7).
func (m *Manager) List(ctx context.Context) ([]Resource, error) {
	seen := make(map[string]bool)
	var out []Resource
	for _, p := range m.providers {
		list, err := p.List(ctx)
		if err != nil {
			return nil, merrors.Wrap(merrors.ErrInternal, "resource provider list failed", err)
		}
		for _, r := range list {
			if seen[r.URI] {
				continue
			}
			seen[r.URI] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// Read finds uri across providers in priority order and returns its
// content from the first provider that resolves it (§4.7).
func (m *Manager) Read(ctx context.Context, uri string) (*Content, error) {
	for _, p := range m.providers {
		content, err := p.Read(ctx, uri)
		if err != nil {
			continue
		}
		if content != nil {
			return content, nil
		}
	}
	return nil, merrors.New(merrors.ErrValidation, "resource not found: "+uri)
}
