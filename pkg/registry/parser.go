package registry

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// ParseOptions controls how strictly a capability file is validated.
type ParseOptions struct {
	// Strict rejects unknown routing kinds and any per-tool validation
	// failure outright (§4.1 "Failure semantics").
	Strict bool
}

// ParseFile parses and validates a single capability file's raw YAML
// bytes, stamping origin onto the result.
func ParseFile(origin string, raw []byte, opts ParseOptions) (*CapabilityFile, error) {
	var file CapabilityFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, merrors.Wrap(merrors.ErrParse, fmt.Sprintf("failed to parse %s", origin), err)
	}
	file.Origin = origin

	seen := make(map[string]bool, len(file.Tools))
	for i := range file.Tools {
		tool := &file.Tools[i]
		if err := validateTool(tool, opts); err != nil {
			return nil, merrors.Wrap(merrors.ErrValidation, fmt.Sprintf("%s: tool %q", origin, tool.Name), err)
		}
		if seen[tool.Name] {
			return nil, merrors.New(merrors.ErrValidation,
				fmt.Sprintf("%s: duplicate tool name %q within a single file", origin, tool.Name))
		}
		seen[tool.Name] = true
	}

	return &file, nil
}

func validateTool(tool *ToolDefinition, opts ParseOptions) error {
	if tool.Name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !ValidName(tool.Name) {
		return fmt.Errorf("name %q does not match [A-Za-z_][A-Za-z0-9_]*", tool.Name)
	}
	if tool.Description == "" {
		return fmt.Errorf("description must not be empty")
	}
	if err := validateInputSchema(tool.InputSchema); err != nil {
		return err
	}
	if tool.Routing.Kind == "" {
		return fmt.Errorf("routing.type must not be empty")
	}
	if !KnownAgentKinds[tool.Routing.Kind] {
		if opts.Strict {
			return fmt.Errorf("unknown routing kind %q", tool.Routing.Kind)
		}
		// Non-strict mode: unknown kinds are kept (the router will fail
		// the individual call, not the whole file load) per §4.1's
		// escape hatch.
	}
	return nil
}

// validateInputSchema requires a well-formed JSON Schema object whose
// top-level "type" is "object" (§3.1).
func validateInputSchema(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("inputSchema must not be empty")
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("inputSchema must be a JSON object: %w", err)
	}
	t, ok := doc["type"]
	if !ok || t != "object" {
		return fmt.Errorf(`inputSchema must declare "type": "object"`)
	}
	// Compiling the schema catches structural errors (malformed
	// properties/required/etc.) beyond the bare type check.
	if _, err := gojsonschema.NewSchema(gojsonschema.NewRawLoader(doc)); err != nil {
		return fmt.Errorf("inputSchema is not a valid JSON Schema: %w", err)
	}
	return nil
}
