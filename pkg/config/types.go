// Package config resolves magictunnel's layered configuration (§6.3) and
// the runtime mode it implies.
package config

import "time"

// RuntimeMode controls which services are constructed at startup (§6.3).
type RuntimeMode string

const (
	// ModeProxy builds the registry, router and front-end only.
	ModeProxy RuntimeMode = "proxy"
	// ModeAdvanced builds everything in ModeProxy plus smart discovery
	// and the security hook surface.
	ModeAdvanced RuntimeMode = "advanced"
)

// Config is the fully-resolved configuration tree.
type Config struct {
	RuntimeMode     RuntimeMode     `yaml:"runtime_mode"`
	SmartDiscovery  bool            `yaml:"smart_discovery"`
	Registry        RegistryConfig  `yaml:"registry"`
	Server          ServerConfig    `yaml:"server"`
	Discovery       DiscoveryConfig `yaml:"discovery"`
	Backends        []BackendConfig `yaml:"backends"`
	Security        SecurityConfig  `yaml:"security"`
}

// RegistryConfig configures capability discovery and hot reload (§4.1).
type RegistryConfig struct {
	Roots          []string      `yaml:"roots"`
	Strict         bool          `yaml:"strict"`
	HotReload      bool          `yaml:"hot_reload"`
	DebounceWindow time.Duration `yaml:"debounce_window"`
}

// ServerConfig configures the MCP front-end (§4.6).
type ServerConfig struct {
	Stdio               bool     `yaml:"stdio"`
	HTTPAddr            string   `yaml:"http_addr"`
	WebSocketAddr       string   `yaml:"websocket_addr"`
	SSEAddr             string   `yaml:"sse_addr"`
	StreamableHTTPAddr  string   `yaml:"streamable_http_addr"`
	Name                string   `yaml:"name"`
	Version             string   `yaml:"version"`
	LogNotificationRate int      `yaml:"log_notification_rate"`
	WebSocketOrigins    []string `yaml:"websocket_origins"`
}

// DiscoveryConfig configures the smart discovery engine (§4.5).
type DiscoveryConfig struct {
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	WeightSemantic      float64       `yaml:"weight_semantic"`
	WeightRule          float64       `yaml:"weight_rule"`
	WeightLLM           float64       `yaml:"weight_llm"`
	SequentialMode      bool          `yaml:"sequential_mode"`
	SequentialMaxTries  int           `yaml:"sequential_max_tries"`
	SessionCacheSize    int           `yaml:"session_cache_size"`
	TopKForRerank       int           `yaml:"top_k_for_rerank"`
}

// BackendConfig describes one external MCP backend to connect to (§4.3).
type BackendConfig struct {
	ID                 string            `yaml:"id"`
	Transport          string            `yaml:"transport"` // stdio|http|sse|streamable-http
	Command             string           `yaml:"command"`
	Args                []string          `yaml:"args"`
	Env                 map[string]string `yaml:"env"`
	URL                 string            `yaml:"url"`
	Headers             map[string]string `yaml:"headers"`
	MaxReconnectAttempts int              `yaml:"max_reconnect_attempts"`
	IdleWindow          time.Duration     `yaml:"idle_window"`
}

// SecurityConfig configures the authorization hook surface (§4.9/J).
type SecurityConfig struct {
	Enabled bool `yaml:"enabled"`
}
