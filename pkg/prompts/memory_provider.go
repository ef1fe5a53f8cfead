package prompts

import (
	"context"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// MemoryProvider serves prompt templates registered in process memory (§4.7).
type MemoryProvider struct {
	templates map[string]Template
}

// NewMemoryProvider builds an empty MemoryProvider; call Put to add entries.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{templates: make(map[string]Template)}
}

// Put registers or replaces a prompt template.
func (p *MemoryProvider) Put(tmpl Template) {
	p.templates[tmpl.Prompt.Name] = tmpl
}

// List implements Provider.
func (p *MemoryProvider) List(_ context.Context) ([]Prompt, error) {
	out := make([]Prompt, 0, len(p.templates))
	for _, t := range p.templates {
		out = append(out, t.Prompt)
	}
	return out, nil
}

// Get implements Provider.
func (p *MemoryProvider) Get(_ context.Context, name string) (*Template, error) {
	t, ok := p.templates[name]
	if !ok {
		return nil, merrors.New(merrors.ErrValidation, "no prompt template "+name)
	}
	return &t, nil
}
