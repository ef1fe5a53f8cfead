package discovery

import (
	"context"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

// LLMReranker optionally re-scores the top-K candidates after semantic
// and rule scoring, returning a confidence in [0, 1] and a short
// rationale per candidate (§4.5 step 2 "llm"). Re-ranking is marked
// non-deterministic in §4.5's determinism note and can be disabled by
// leaving this nil.
type LLMReranker interface {
	Rerank(ctx context.Context, request string, candidate registry.ToolDefinition) (confidence float64, rationale string, err error)
}
