package config

import "os"

// EnvReader abstracts environment lookups so tests can stub them without
// mutating process-global state (mirrors pkg/logger.EnvReader).
type EnvReader interface {
	Getenv(key string) string
	LookupEnv(key string) (string, bool)
}

// OSEnvReader reads from the real process environment.
type OSEnvReader struct{}

// Getenv implements EnvReader.
func (OSEnvReader) Getenv(key string) string { return os.Getenv(key) }

// LookupEnv implements EnvReader.
func (OSEnvReader) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

const (
	envRuntimeMode    = "MAGICTUNNEL_RUNTIME_MODE"
	envSmartDiscovery = "MAGICTUNNEL_SMART_DISCOVERY"
	envConfigPath     = "CONFIG_PATH"
)

// applyEnvOverrides mutates cfg in place per the recognized environment
// overrides in §6.3.
func applyEnvOverrides(cfg *Config, env EnvReader) {
	if v, ok := env.LookupEnv(envRuntimeMode); ok {
		switch RuntimeMode(v) {
		case ModeProxy, ModeAdvanced:
			cfg.RuntimeMode = RuntimeMode(v)
		}
	}
	if v, ok := env.LookupEnv(envSmartDiscovery); ok {
		switch v {
		case "true":
			cfg.SmartDiscovery = true
		case "false":
			cfg.SmartDiscovery = false
		}
	}
}

// ResolveConfigPath returns the CONFIG_PATH override if set, else falls
// back to the preferred/legacy filenames (§6.3), returning the first
// that exists on disk.
func ResolveConfigPath(env EnvReader) string {
	if v, ok := env.LookupEnv(envConfigPath); ok && v != "" {
		return v
	}
	for _, candidate := range []string{"magictunnel-config.yaml", "config.yaml"} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "magictunnel-config.yaml"
}
