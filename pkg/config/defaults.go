package config

import "time"

// Defaults returns the built-in configuration defaults, the lowest layer
// of the resolution order in §6.3.
func Defaults() *Config {
	return &Config{
		RuntimeMode:    ModeProxy,
		SmartDiscovery: false,
		Registry: RegistryConfig{
			Roots:          []string{"./capabilities"},
			Strict:         false,
			HotReload:      true,
			DebounceWindow: 200 * time.Millisecond,
		},
		Server: ServerConfig{
			Stdio:               true,
			HTTPAddr:            "",
			WebSocketAddr:       "",
			SSEAddr:             "",
			StreamableHTTPAddr:  "",
			Name:                "magictunnel",
			Version:             "0.1.0",
			LogNotificationRate: 100,
		},
		Discovery: DiscoveryConfig{
			ConfidenceThreshold: 0.5,
			WeightSemantic:      0.5,
			WeightRule:          0.3,
			WeightLLM:           0.2,
			SequentialMode:      false,
			SequentialMaxTries:  3,
			SessionCacheSize:    256,
			TopKForRerank:       5,
		},
		Security: SecurityConfig{Enabled: false},
	}
}
