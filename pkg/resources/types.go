// Package resources implements the resource manager (§4.7): an ordered
// list of resource providers merged with stable dedup by URI, first
// provider wins.
package resources

import "context"

// Resource is one entry returned by resources/list (§4.7).
type Resource struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
}

// Content is the body returned by resources/read (§4.7).
type Content struct {
	URI      string
	MIMEType string
	Text     string // set when the content is valid UTF-8 text
	Blob     string // base64, set when the content is not UTF-8 text
}

// Provider supplies a subset of the aggregated resource catalog (§4.7).
type Provider interface {
	List(ctx context.Context) ([]Resource, error)
	Read(ctx context.Context, uri string) (*Content, error)
}
