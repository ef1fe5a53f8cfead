package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/config"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

func TestEngine_Discover_RerankerInfluencesScoreAndRationale(t *testing.T) {
	ctrl := gomock.NewController(t)

	src := &stubCandidateSource{tools: []registry.ResolvedTool{issuesTool()}}
	rt := &stubRouter{result: router.SuccessResult("ok")}

	reranker := NewMockLLMReranker(ctrl)
	reranker.EXPECT().
		Rerank(gomock.Any(), "show me open github issues", gomock.Any()).
		Return(0.9, "matches the issues-listing tool", nil)

	cfg := discoveryCfg()
	cfg.WeightLLM = 1.0

	e := NewEngine(cfg, nil, reranker, nil, rt, func() CandidateSource { return src }, nil)

	result, err := e.Discover(context.Background(), Request{Text: "show me open github issues"})
	require.NoError(t, err)
	require.NotNil(t, result.Selected)
	assert.Equal(t, "list_github_issues", result.Selected.Name)

	require.Len(t, result.Candidates, 1)
	assert.InDelta(t, 0.9, result.Candidates[0].LLM, 0.0001)
	assert.Equal(t, "matches the issues-listing tool", result.Candidates[0].Rationale)
	// Rule signal: name tokens hit (1), 3 of 7 description tokens, 0 of 1
	// parameter names, averaged over 3 signals = 10/21.
	assert.InDelta(t, cfg.WeightRule*10.0/21.0+cfg.WeightLLM*0.9, result.Candidates[0].Score, 0.0001)
}

func TestEngine_Discover_RerankerErrorLeavesCandidateScoreUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)

	src := &stubCandidateSource{tools: []registry.ResolvedTool{issuesTool()}}
	rt := &stubRouter{result: router.SuccessResult("ok")}

	reranker := NewMockLLMReranker(ctrl)
	reranker.EXPECT().
		Rerank(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(0.0, "", assert.AnError)

	cfg := discoveryCfg()
	cfg.WeightLLM = 1.0

	e := NewEngine(cfg, nil, reranker, nil, rt, func() CandidateSource { return src }, nil)

	result, err := e.Discover(context.Background(), Request{Text: "show me open github issues"})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	assert.Empty(t, result.Candidates[0].Rationale)
	assert.InDelta(t, cfg.WeightRule*10.0/21.0, result.Candidates[0].Score, 0.0001)
}
