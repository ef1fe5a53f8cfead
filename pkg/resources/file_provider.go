package resources

import (
	"context"
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// FileProvider serves resources from a static uri-to-path mapping,
// base64-encoding non-UTF-8 content and inferring MIME type from the
// file extension (§4.7).
type FileProvider struct {
	entries map[string]fileEntry
}

type fileEntry struct {
	path        string
	name        string
	description string
}

// NewFileProvider builds an empty FileProvider; call Register to add entries.
func NewFileProvider() *FileProvider {
	return &FileProvider{entries: make(map[string]fileEntry)}
}

// Register maps uri to a filesystem path served under name/description.
func (p *FileProvider) Register(uri, path, name, description string) {
	p.entries[uri] = fileEntry{path: path, name: name, description: description}
}

// List implements Provider.
func (p *FileProvider) List(_ context.Context) ([]Resource, error) {
	out := make([]Resource, 0, len(p.entries))
	for uri, e := range p.entries {
		out = append(out, Resource{
			URI:         uri,
			Name:        e.name,
			Description: e.description,
			MIMEType:    mimeForPath(e.path),
		})
	}
	return out, nil
}

// Read implements Provider.
func (p *FileProvider) Read(_ context.Context, uri string) (*Content, error) {
	e, ok := p.entries[uri]
	if !ok {
		return nil, merrors.New(merrors.ErrValidation, "no file resource registered for "+uri)
	}

	data, err := os.ReadFile(e.path)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrInternal, "failed to read resource file "+e.path, err)
	}

	mimeType := mimeForPath(e.path)
	if utf8.Valid(data) {
		return &Content{URI: uri, MIMEType: mimeType, Text: string(data)}, nil
	}
	return &Content{URI: uri, MIMEType: mimeType, Blob: base64.StdEncoding.EncodeToString(data)}, nil
}

func mimeForPath(path string) string {
	t := mime.TypeByExtension(filepath.Ext(path))
	if t == "" {
		return "application/octet-stream"
	}
	return t
}
