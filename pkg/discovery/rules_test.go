package discovery

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

func TestRuleScore_NameAndDescriptionOverlap(t *testing.T) {
	tool := registry.ToolDefinition{
		Name:        "list_github_issues",
		Description: "Lists open issues for a github repository",
		InputSchema: json.RawMessage(`{"type":"object","properties":{"repo":{"type":"string"}}}`),
	}

	tokens := tokenSet(tokenize("show me open github issues for a repo"))
	score := ruleScore(tokens, tool)
	assert.Greater(t, score, 0.0)
}

func TestRuleScore_NoOverlapIsZero(t *testing.T) {
	tool := registry.ToolDefinition{Name: "send_email", Description: "Sends an email message"}
	tokens := tokenSet(tokenize("deploy the kubernetes cluster"))
	assert.Equal(t, 0.0, ruleScore(tokens, tool))
}

func TestRuleScore_EmptyRequestTokensIsZero(t *testing.T) {
	tool := registry.ToolDefinition{Name: "anything"}
	assert.Equal(t, 0.0, ruleScore(map[string]bool{}, tool))
}

func TestSchemaParamNames(t *testing.T) {
	names := schemaParamNames(json.RawMessage(`{"type":"object","properties":{"a":{},"b":{}}}`))
	assert.ElementsMatch(t, []string{"a", "b"}, names)
}

func TestSchemaParamNames_MalformedSchemaReturnsNil(t *testing.T) {
	assert.Nil(t, schemaParamNames(json.RawMessage(`not json`)))
	assert.Nil(t, schemaParamNames(nil))
}
