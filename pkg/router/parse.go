package router

import (
	"encoding/json"
	"fmt"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/registry"
)

// ParseRoutingConfig parses a registry.Routing's raw config into a typed
// AgentType variant (§4.2). Unknown kinds fail with a routing error.
func ParseRoutingConfig(r registry.Routing) (*AgentType, error) {
	at := &AgentType{Kind: r.Kind}

	switch r.Kind {
	case registry.AgentSubprocess:
		cfg := &SubprocessConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.Subprocess = cfg
	case registry.AgentHTTP:
		cfg := &HTTPConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.HTTP = cfg
	case registry.AgentGRPC:
		cfg := &GRPCConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.GRPC = cfg
	case registry.AgentSSE:
		cfg := &SSEConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.SSE = cfg
	case registry.AgentGraphQL:
		cfg := &GraphQLConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.GraphQL = cfg
	case registry.AgentWebSocket:
		cfg := &WebSocketConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.WebSocket = cfg
	case registry.AgentDatabase:
		cfg := &DatabaseConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.Database = cfg
	case registry.AgentLLM:
		cfg := &LLMConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.LLM = cfg
	case registry.AgentExternalMCP:
		cfg := &ExternalMCPConfig{}
		if err := unmarshalConfig(r.Config, cfg); err != nil {
			return nil, err
		}
		at.ExternalMCP = cfg
	default:
		return nil, merrors.New(merrors.ErrRouting, fmt.Sprintf("unknown routing kind %q", r.Kind))
	}

	return at, nil
}

func unmarshalConfig(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return merrors.New(merrors.ErrRouting, "routing config must not be empty")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return merrors.Wrap(merrors.ErrRouting, "failed to parse routing config", err)
	}
	if err := rejectZeroTimeout(raw); err != nil {
		return err
	}
	return nil
}

// rejectZeroTimeout enforces that an explicit "timeout": 0 in the raw
// config fails validation rather than silently falling through to
// EffectiveTimeout's default. TimeoutMS is a plain int on every agent
// config, so an omitted field and an explicit zero both unmarshal to 0;
// only a map-level re-decode of the original payload can tell them apart.
func rejectZeroTimeout(raw json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	timeout, present := fields["timeout"]
	if !present {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(timeout, &n); err != nil {
		return nil
	}
	if n.String() == "0" {
		return merrors.New(merrors.ErrValidation, "routing config \"timeout\" must not be 0")
	}
	return nil
}
