package discovery

// Hand-authored in the shape mockgen produces for LLMReranker; generation
// wasn't run as part of this change, but the mock follows the same
// Controller/Recorder/Call structure go.uber.org/mock/gomock expects.

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

// MockLLMReranker is a mock of the LLMReranker interface.
type MockLLMReranker struct {
	ctrl     *gomock.Controller
	recorder *MockLLMRerankerMockRecorder
}

// MockLLMRerankerMockRecorder is the mock recorder for MockLLMReranker.
type MockLLMRerankerMockRecorder struct {
	mock *MockLLMReranker
}

// NewMockLLMReranker creates a new mock instance.
func NewMockLLMReranker(ctrl *gomock.Controller) *MockLLMReranker {
	m := &MockLLMReranker{ctrl: ctrl}
	m.recorder = &MockLLMRerankerMockRecorder{m}
	return m
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockLLMReranker) EXPECT() *MockLLMRerankerMockRecorder {
	return m.recorder
}

// Rerank mocks base method.
func (m *MockLLMReranker) Rerank(ctx context.Context, request string, candidate registry.ToolDefinition) (float64, string, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Rerank", ctx, request, candidate)
	confidence, _ := ret[0].(float64)
	rationale, _ := ret[1].(string)
	err, _ := ret[2].(error)
	return confidence, rationale, err
}

// Rerank indicates an expected call of Rerank.
func (mr *MockLLMRerankerMockRecorder) Rerank(ctx, request, candidate any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Rerank", reflect.TypeOf((*MockLLMReranker)(nil).Rerank), ctx, request, candidate)
}
