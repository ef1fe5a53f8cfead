package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

// rawJSONCodec passes JSON bytes through grpc.Invoke untouched, so a
// backend's "service/method" envelope can be addressed without
// generating protobuf stubs for it. This is only safe against backends
// that actually speak JSON over gRPC's framing (e.g. grpc-gateway style
// transcoders); contract-incompatible backends should front themselves
// with such a transcoder rather than this codec guessing at protobuf.
type rawJSONCodec struct{}

func (rawJSONCodec) Name() string { return "json" }

func (rawJSONCodec) Marshal(v any) ([]byte, error) {
	switch t := v.(type) {
	case json.RawMessage:
		return t, nil
	case []byte:
		return t, nil
	default:
		return json.Marshal(v)
	}
}

func (rawJSONCodec) Unmarshal(data []byte, v any) error {
	ptr, ok := v.(*json.RawMessage)
	if !ok {
		return fmt.Errorf("rawJSONCodec: unsupported destination %T", v)
	}
	*ptr = append((*ptr)[:0], data...)
	return nil
}

// GRPCInvoker abstracts the raw unary call so tests can substitute a mock
// transport without a real server (§4.2: "transport mock acceptable; the
// contract documents the envelope"). The production implementation opens
// a *grpc.ClientConn and uses grpc.Invoke with the fully-qualified
// "/service/method" path against caller-supplied raw JSON, matching how
// magictunnel treats gRPC routing as a thin, schema-less envelope rather
// than requiring generated protobuf stubs per backend.
type GRPCInvoker interface {
	Invoke(ctx context.Context, endpoint, service, method string, request json.RawMessage, insecureConn bool) (json.RawMessage, error)
}

// DefaultGRPCInvoker dials endpoint fresh per call. Real deployments are
// expected to route through a JSON<->protobuf transcoding proxy; this
// invoker documents the envelope contract and is the seam tests replace.
type DefaultGRPCInvoker struct{}

// Invoke implements GRPCInvoker by round-tripping through grpc.Invoke
// against the "/service/method" path, treating request/response as
// passthrough byte payloads via a generic codec.
func (DefaultGRPCInvoker) Invoke(ctx context.Context, endpoint, service, method string, request json.RawMessage, insecureConn bool) (json.RawMessage, error) {
	var opts []grpc.DialOption
	if insecureConn {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var reply json.RawMessage
	fullMethod := "/" + service + "/" + method
	if err := conn.Invoke(ctx, fullMethod, request, &reply, grpc.ForceCodec(rawJSONCodec{})); err != nil {
		return nil, err
	}
	return reply, nil
}

// GRPCExecutor invokes service/method on endpoint per §4.2.
type GRPCExecutor struct {
	Invoker GRPCInvoker
}

// NewGRPCExecutor builds a GRPCExecutor, defaulting to DefaultGRPCInvoker.
func NewGRPCExecutor(invoker GRPCInvoker) *GRPCExecutor {
	if invoker == nil {
		invoker = DefaultGRPCInvoker{}
	}
	return &GRPCExecutor{Invoker: invoker}
}

// Execute implements router.Executor.
func (e *GRPCExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.GRPC
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := router.RenderJSON(cfg.Request, call.Arguments)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to render gRPC request", err)
	}

	reply, err := e.Invoker.Invoke(runCtx, cfg.Endpoint, cfg.Service, cfg.Method, request, cfg.Insecure)
	if err != nil {
		if runCtx.Err() != nil {
			return router.Failure("timed out").WithMetadata("timeout_ms", cfg.TimeoutMS), nil
		}
		return router.Failure(err.Error()), nil
	}

	return router.SuccessResult(string(reply)), nil
}
