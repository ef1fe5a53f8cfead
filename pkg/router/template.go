package router

import (
	"encoding/json"
	"regexp"
)

// tokenRe matches `{{name}}` tokens (§4.2 "Parameter templating").
var tokenRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// RenderString substitutes `{{name}}` tokens in s from arguments. Scalars
// are JSON-serialized when substituted into string contexts (numbers lose
// their quotes, strings keep theirs stripped so they drop in literally);
// missing keys are left as the literal token text.
func RenderString(s string, arguments map[string]any) string {
	return tokenRe.ReplaceAllStringFunc(s, func(match string) string {
		sub := tokenRe.FindStringSubmatch(match)
		name := sub[1]
		v, ok := arguments[name]
		if !ok {
			return match
		}
		return renderScalar(v)
	})
}

func renderScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// RenderStringSlice applies RenderString to every element.
func RenderStringSlice(items []string, arguments map[string]any) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = RenderString(s, arguments)
	}
	return out
}

// RenderStringMap applies RenderString to every value (not key) of m.
func RenderStringMap(m map[string]string, arguments map[string]any) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = RenderString(v, arguments)
	}
	return out
}

// RenderJSON substitutes tokens found inside string leaves of an
// arbitrary JSON document (used for request/response bodies and the
// "variables" block, §4.2).
func RenderJSON(raw json.RawMessage, arguments map[string]any) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	rendered := renderValue(doc, arguments)
	return json.Marshal(rendered)
}

func renderValue(v any, arguments map[string]any) any {
	switch t := v.(type) {
	case string:
		return RenderString(t, arguments)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = renderValue(val, arguments)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = renderValue(val, arguments)
		}
		return out
	default:
		return t
	}
}
