package discovery

import (
	"context"
	"sort"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/config"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/security"
)

// CandidateSource narrows *registry.Snapshot to what the engine needs, so
// tests can stub it without building a full snapshot.
type CandidateSource interface {
	ListVisibleTools() []registry.ResolvedTool
}

// NoConfidentMatch is the §4.5 step 3 structured failure: every candidate
// scored below the confidence threshold.
type NoConfidentMatch struct {
	Top []Candidate
}

func (e *NoConfidentMatch) Error() string {
	return "no candidate tool met the confidence threshold"
}

// Engine runs the smart_tool_discovery pipeline (§4.5).
type Engine struct {
	cfg      config.DiscoveryConfig
	embed    *cachedEmbed
	reranker LLMReranker
	filler   ArgumentFiller
	router   router.Router
	snapshot func() CandidateSource
	hook     security.Hook
}

// NewEngine builds an Engine. embedder and reranker may be nil to disable
// the semantic and LLM signals respectively (§4.5: "missing signals
// contribute zero"). snapshot returns the current candidate source on
// every call so the engine always sees a fresh registry snapshot. hook
// may be nil to skip security filtering (proxy mode never builds an
// Engine at all, per §1).
func NewEngine(cfg config.DiscoveryConfig, embedder EmbeddingProvider, reranker LLMReranker, filler ArgumentFiller, r router.Router, snapshot func() CandidateSource, hook security.Hook) *Engine {
	var cached *cachedEmbed
	if embedder != nil {
		cached = newCachedEmbed(embedder, cfg.SessionCacheSize)
	}
	return &Engine{cfg: cfg, embed: cached, reranker: reranker, filler: filler, router: r, snapshot: snapshot, hook: hook}
}

// Discover runs the full pipeline for req: candidate set, scoring,
// selection, argument mapping, execution, and optional sequential retry
// (§4.5 steps 1-6).
func (e *Engine) Discover(ctx context.Context, req Request) (*Result, error) {
	candidates, err := e.scoreCandidates(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, merrors.New(merrors.ErrDiscovery, "no candidate tools available")
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })

	threshold := e.cfg.ConfidenceThreshold
	if req.ConfidenceThreshold != nil {
		threshold = *req.ConfidenceThreshold
	}

	if candidates[0].Score < threshold {
		top := candidates
		if len(top) > 3 {
			top = top[:3]
		}
		if !req.IncludeErrorDetails {
			for i := range top {
				top[i].Rationale = ""
			}
		}
		return nil, &NoConfidentMatch{Top: top}
	}

	sequential := e.cfg.SequentialMode
	if req.SequentialMode != nil {
		sequential = *req.SequentialMode
	}

	maxTries := e.cfg.SequentialMaxTries
	if maxTries <= 0 {
		maxTries = 1
	}
	if !sequential {
		maxTries = 1
	}

	result := &Result{Candidates: candidates}

	for i := 0; i < maxTries && i < len(candidates); i++ {
		cand := candidates[i]
		args, mapErr := mapArguments(ctx, e.filler, req.Text, cand.Tool, req.Context)
		if mapErr != nil {
			result.Attempts = append(result.Attempts, Attempt{ToolName: cand.Tool.Name, Success: false, Error: mapErr.Error()})
			if !sequential {
				return nil, mapErr
			}
			continue
		}

		agentResult, execErr := e.router.Route(ctx, router.ToolCall{Name: cand.Tool.Name, Arguments: args}, cand.Tool)
		if execErr != nil || agentResult == nil || !agentResult.Success {
			msg := "execution failed"
			if execErr != nil {
				msg = execErr.Error()
			} else if agentResult != nil {
				msg = agentResult.Error
			}
			result.Attempts = append(result.Attempts, Attempt{ToolName: cand.Tool.Name, Success: false, Error: msg})
			if !sequential {
				if execErr != nil {
					return nil, execErr
				}
				tool := cand.Tool
				result.Selected = &tool
				result.Arguments = args
				return result, nil
			}
			continue
		}

		tool := cand.Tool
		result.Selected = &tool
		result.Arguments = args
		result.Attempts = append(result.Attempts, Attempt{ToolName: cand.Tool.Name, Success: true})
		return result, nil
	}

	return result, merrors.New(merrors.ErrDiscovery, "all sequential-mode candidates failed")
}

func (e *Engine) scoreCandidates(ctx context.Context, req Request) ([]Candidate, error) {
	source := e.snapshot()
	tools := source.ListVisibleTools()
	requestTokens := tokenSet(tokenize(req.Text))

	preferred := make(map[string]bool, len(req.PreferredTools))
	for _, name := range req.PreferredTools {
		preferred[name] = true
	}

	var requestEmbedding []float64
	if e.embed != nil {
		var err error
		requestEmbedding, err = e.embed.embed(ctx, req.Text)
		if err != nil {
			return nil, merrors.Wrap(merrors.ErrDiscovery, "failed to embed request", err)
		}
	}

	candidates := make([]Candidate, 0, len(tools))
	for _, rt := range tools {
		tool := rt.Tool

		if e.hook != nil {
			decision := e.hook.Authorize(ctx, security.Context{ClientID: req.ClientID, ToolName: tool.Name, Arguments: req.Context})
			if !decision.Allow {
				continue
			}
		}

		c := Candidate{Tool: tool}

		if e.embed != nil {
			toolText := tool.Name + " " + tool.Description
			toolEmbedding, err := e.embed.embed(ctx, toolText)
			if err == nil {
				c.Semantic = cosineSimilarity(requestEmbedding, toolEmbedding)
			}
		}

		c.Rule = ruleScore(requestTokens, tool)
		if preferred[tool.Name] {
			c.Rule = 1
		}

		c.Score = e.cfg.WeightSemantic*c.Semantic + e.cfg.WeightRule*c.Rule
		candidates = append(candidates, c)
	}

	// §4.5 step 2: the LLM signal only re-ranks the top-K by the
	// semantic+rule score computed above, not the full candidate set.
	if e.reranker != nil && len(candidates) > 0 {
		sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
		topK := e.cfg.TopKForRerank
		if topK <= 0 || topK > len(candidates) {
			topK = len(candidates)
		}
		for i := 0; i < topK; i++ {
			confidence, rationale, err := e.reranker.Rerank(ctx, req.Text, candidates[i].Tool)
			if err != nil {
				continue
			}
			candidates[i].LLM = confidence
			candidates[i].Rationale = rationale
			candidates[i].Score += e.cfg.WeightLLM * confidence
		}
	}

	return candidates, nil
}
