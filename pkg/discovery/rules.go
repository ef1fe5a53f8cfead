package discovery

import (
	"encoding/json"
	"strings"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

// tokenize lowercases and splits on anything that isn't a letter or digit.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return out
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}

// schemaParamNames returns the top-level "properties" keys of a tool's
// input schema, tolerating a malformed or absent schema.
func schemaParamNames(schema json.RawMessage) []string {
	if len(schema) == 0 {
		return nil
	}
	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil
	}
	names := make([]string, 0, len(doc.Properties))
	for name := range doc.Properties {
		names = append(names, name)
	}
	return names
}

// ruleScore implements §4.5 step 2's "rule" signal from three parts: whether
// any token of the tool name occurs in the request, the fraction of
// description tokens found in the request (standing in for a tag match,
// since tool definitions carry no separate tag list), and the fraction of
// parameter names found in the request. Names are compared whole token by
// whole token; no prefix comparison is made. The result is the mean over
// the parts present, capped to [0, 1].
func ruleScore(requestTokens map[string]bool, tool registry.ToolDefinition) float64 {
	if len(requestTokens) == 0 {
		return 0
	}

	var hits, signals float64

	nameTokens := tokenSet(tokenize(tool.Name))
	signals++
	if overlap(requestTokens, nameTokens) {
		hits++
	}

	descTokens := tokenSet(tokenize(tool.Description))
	if len(descTokens) > 0 {
		signals++
		hits += overlapRatio(requestTokens, descTokens)
	}

	paramTokens := tokenSet(schemaParamNames(tool.InputSchema))
	if len(paramTokens) > 0 {
		signals++
		hits += overlapRatio(requestTokens, paramTokens)
	}

	if signals == 0 {
		return 0
	}
	score := hits / signals
	if score > 1 {
		score = 1
	}
	return score
}

func overlap(a, b map[string]bool) bool {
	for t := range b {
		if a[t] {
			return true
		}
	}
	return false
}

// overlapRatio returns the fraction of b's tokens also present in a.
func overlapRatio(a, b map[string]bool) float64 {
	if len(b) == 0 {
		return 0
	}
	var matched float64
	for t := range b {
		if a[t] {
			matched++
		}
	}
	return matched / float64(len(b))
}
