package discovery

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

type fakeFiller struct {
	extra map[string]any
	err   error
}

func (f *fakeFiller) FillArguments(ctx context.Context, requestText string, tool registry.ToolDefinition, hints map[string]any) (map[string]any, error) {
	return f.extra, f.err
}

func TestMapArguments_ValidatesAgainstSchema(t *testing.T) {
	tool := registry.ToolDefinition{
		Name:        "list_issues",
		InputSchema: json.RawMessage(`{"type":"object","required":["repo"],"properties":{"repo":{"type":"string"}}}`),
	}

	_, err := mapArguments(context.Background(), nil, "", tool, map[string]any{"repo": "x/y"})
	require.NoError(t, err)
}

func TestMapArguments_MissingRequiredFieldFails(t *testing.T) {
	tool := registry.ToolDefinition{
		Name:        "list_issues",
		InputSchema: json.RawMessage(`{"type":"object","required":["repo"],"properties":{"repo":{"type":"string"}}}`),
	}

	_, err := mapArguments(context.Background(), nil, "", tool, map[string]any{})
	require.Error(t, err)
	mapErr, ok := err.(*ArgumentMappingError)
	require.True(t, ok)
	assert.Equal(t, "list_issues", mapErr.ToolName)
	assert.NotEmpty(t, mapErr.Issues)
}

func TestMapArguments_FillerSuppliesMissingField(t *testing.T) {
	tool := registry.ToolDefinition{
		Name:        "list_issues",
		InputSchema: json.RawMessage(`{"type":"object","required":["repo"],"properties":{"repo":{"type":"string"}}}`),
	}
	filler := &fakeFiller{extra: map[string]any{"repo": "a/b"}}

	args, err := mapArguments(context.Background(), filler, "list issues in a/b", tool, nil)
	require.NoError(t, err)
	assert.Equal(t, "a/b", args["repo"])
}

func TestMapArguments_NoSchemaSkipsValidation(t *testing.T) {
	tool := registry.ToolDefinition{Name: "no_schema_tool"}
	args, err := mapArguments(context.Background(), nil, "", tool, map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, args["x"])
}
