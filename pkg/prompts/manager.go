package prompts

import (
	"context"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// Manager holds an ordered list of Providers (§4.7). List merges every
// provider's results with stable dedup by name, first provider wins.
type Manager struct {
	providers []Provider
}

// NewManager builds a Manager over providers, in priority order.
func NewManager(providers ...Provider) *Manager {
	return &Manager{providers: providers}
}

// List returns the deduplicated, merged prompt catalog (§4.7).
func (m *Manager) List(ctx context.Context) ([]Prompt, error) {
	seen := make(map[string]bool)
	var out []Prompt
	for _, p := range m.providers {
		list, err := p.List(ctx)
		if err != nil {
			return nil, merrors.Wrap(merrors.ErrInternal, "prompt provider list failed", err)
		}
		for _, pr := range list {
			if seen[pr.Name] {
				continue
			}
			seen[pr.Name] = true
			out = append(out, pr)
		}
	}
	return out, nil
}

// Render finds name across providers in priority order and renders its
// template against arguments, validating required arguments are present
// (§4.7 "missing required argument -> structured error").
func (m *Manager) Render(ctx context.Context, name string, arguments map[string]any) ([]Message, error) {
	for _, p := range m.providers {
		tmpl, err := p.Get(ctx, name)
		if err != nil || tmpl == nil {
			continue
		}
		return renderTemplate(*tmpl, arguments)
	}
	return nil, merrors.New(merrors.ErrValidation, "no prompt named "+name)
}

func renderTemplate(tmpl Template, arguments map[string]any) ([]Message, error) {
	for _, arg := range tmpl.Prompt.Arguments {
		if !arg.Required {
			continue
		}
		if _, ok := arguments[arg.Name]; !ok {
			return nil, merrors.New(merrors.ErrValidation, "missing required prompt argument "+arg.Name).
				WithData("prompt", tmpl.Prompt.Name)
		}
	}

	rendered := make([]Message, len(tmpl.Messages))
	for i, msg := range tmpl.Messages {
		rendered[i] = Message{Role: msg.Role, Content: router.RenderString(msg.Content, arguments)}
	}
	return rendered, nil
}
