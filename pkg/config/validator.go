package config

import (
	"fmt"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// FieldIssue names a single semantic validation failure, surfaced under
// merrors.Error.Data["issues"] per §7's "structured list of field/issue
// pairs" requirement.
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// Validator runs semantic checks over a resolved Config.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator { return &Validator{} }

// Validate checks semantic correctness beyond what YAML unmarshalling
// alone catches: runtime mode, registry roots and debounce window, at
// least one transport, the discovery confidence threshold, and each
// backend's id, transport and endpoint fields. Routing timeouts are
// checked by router.ParseRoutingConfig and agent kinds by the registry
// parser, not here.
func (*Validator) Validate(cfg *Config) error {
	var issues []FieldIssue

	if cfg.RuntimeMode != ModeProxy && cfg.RuntimeMode != ModeAdvanced {
		issues = append(issues, FieldIssue{Field: "runtime_mode", Issue: fmt.Sprintf("unknown mode %q", cfg.RuntimeMode)})
	}

	if len(cfg.Registry.Roots) == 0 {
		issues = append(issues, FieldIssue{Field: "registry.roots", Issue: "at least one root is required"})
	}
	if cfg.Registry.HotReload && cfg.Registry.DebounceWindow <= 0 {
		issues = append(issues, FieldIssue{Field: "registry.debounce_window", Issue: "must be > 0 when hot_reload is enabled"})
	}

	if !cfg.Server.Stdio && cfg.Server.HTTPAddr == "" && cfg.Server.WebSocketAddr == "" &&
		cfg.Server.SSEAddr == "" && cfg.Server.StreamableHTTPAddr == "" {
		issues = append(issues, FieldIssue{Field: "server", Issue: "at least one transport must be enabled"})
	}

	if cfg.SmartDiscovery {
		if cfg.Discovery.ConfidenceThreshold < 0 || cfg.Discovery.ConfidenceThreshold > 1 {
			issues = append(issues, FieldIssue{Field: "discovery.confidence_threshold", Issue: "must be in [0,1]"})
		}
	}

	seen := make(map[string]bool, len(cfg.Backends))
	for i, b := range cfg.Backends {
		field := fmt.Sprintf("backends[%d]", i)
		if b.ID == "" {
			issues = append(issues, FieldIssue{Field: field + ".id", Issue: "id is required"})
			continue
		}
		if seen[b.ID] {
			issues = append(issues, FieldIssue{Field: field + ".id", Issue: fmt.Sprintf("duplicate backend id %q", b.ID)})
		}
		seen[b.ID] = true

		switch b.Transport {
		case "stdio", "http", "sse", "streamable-http":
		default:
			issues = append(issues, FieldIssue{Field: field + ".transport", Issue: fmt.Sprintf("unknown transport %q", b.Transport)})
		}
		if b.Transport == "stdio" && b.Command == "" {
			issues = append(issues, FieldIssue{Field: field + ".command", Issue: "required for stdio transport"})
		}
		if b.Transport != "stdio" && b.URL == "" {
			issues = append(issues, FieldIssue{Field: field + ".url", Issue: "required for non-stdio transports"})
		}
	}

	if len(issues) == 0 {
		return nil
	}

	return merrors.New(merrors.ErrValidation, "configuration validation failed").WithData("issues", issues)
}
