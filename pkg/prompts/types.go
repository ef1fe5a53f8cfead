// Package prompts implements the prompt manager (§4.7): an ordered list
// of prompt providers merged with stable dedup by name, plus templated
// rendering into role/content message sequences.
package prompts

import "context"

// Argument is one named prompt parameter (§4.7).
type Argument struct {
	Name        string
	Description string
	Required    bool
}

// Prompt is one entry returned by prompts/list (§4.7).
type Prompt struct {
	Name        string
	Description string
	Arguments   []Argument
}

// Message is one rendered role/content pair (§4.7 "render to a sequence
// of role/content messages").
type Message struct {
	Role    string
	Content string
}

// Template pairs a Prompt's metadata with its role/content message
// templates, each containing `{{name}}` tokens (§4.7).
type Template struct {
	Prompt   Prompt
	Messages []Message
}

// Provider supplies a subset of the aggregated prompt catalog (§4.7).
type Provider interface {
	List(ctx context.Context) ([]Prompt, error)
	Get(ctx context.Context, name string) (*Template, error)
}
