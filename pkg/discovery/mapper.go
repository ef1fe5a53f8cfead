package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

// ArgumentFiller populates a tool's arguments from free text, optionally
// assisted by an LLM (§4.5 step 4). The default Engine wiring falls back
// to the request's Context hints alone when no filler is configured.
type ArgumentFiller interface {
	FillArguments(ctx context.Context, requestText string, tool registry.ToolDefinition, hints map[string]any) (map[string]any, error)
}

// ArgumentMappingError lists the schema violations found while validating
// mapped arguments against a tool's input schema (§4.5 step 4).
type ArgumentMappingError struct {
	ToolName string
	Issues   []string
}

func (e *ArgumentMappingError) Error() string {
	return fmt.Sprintf("argument mapping failed for %s: %s", e.ToolName, strings.Join(e.Issues, "; "))
}

// mapArguments builds the argument set for tool from hints (the
// discovery request's `context`, merged with any filler output) and
// validates the result against the tool's input schema, returning
// *ArgumentMappingError on a schema violation.
func mapArguments(ctx context.Context, filler ArgumentFiller, requestText string, tool registry.ToolDefinition, hints map[string]any) (map[string]any, error) {
	args := make(map[string]any, len(hints))
	for k, v := range hints {
		args[k] = v
	}

	if filler != nil {
		filled, err := filler.FillArguments(ctx, requestText, tool, hints)
		if err != nil {
			return nil, merrors.Wrap(merrors.ErrDiscovery, "argument filler failed", err)
		}
		for k, v := range filled {
			args[k] = v
		}
	}

	if len(tool.InputSchema) == 0 {
		return args, nil
	}

	schemaLoader := gojsonschema.NewBytesLoader(tool.InputSchema)
	docLoader := gojsonschema.NewGoLoader(args)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrDiscovery, "failed to validate mapped arguments", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return nil, &ArgumentMappingError{ToolName: tool.Name, Issues: issues}
	}
	return args, nil
}
