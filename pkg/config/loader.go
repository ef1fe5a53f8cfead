package config

import (
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// YAMLLoader loads a Config from a YAML file, layering it over the
// built-in defaults, then applying environment overrides, then any CLI
// overrides supplied explicitly — highest layer wins (§6.3).
type YAMLLoader struct {
	path string
	env  EnvReader
}

// NewYAMLLoader constructs a loader for the given file path.
func NewYAMLLoader(path string, env EnvReader) *YAMLLoader {
	if env == nil {
		env = OSEnvReader{}
	}
	return &YAMLLoader{path: path, env: env}
}

// Load reads and resolves the layered configuration.
func (l *YAMLLoader) Load() (*Config, error) {
	cfg := Defaults()

	if l.path != "" {
		raw, err := os.ReadFile(l.path)
		if err != nil {
			if os.IsNotExist(err) {
				// Absence of an optional file layer is not an error; the
				// defaults (plus env/CLI overrides) still form a valid config.
				applyEnvOverrides(cfg, l.env)
				return cfg, nil
			}
			return nil, merrors.Wrap(merrors.ErrConfig, "failed to read config file", err)
		}

		fromFile := &Config{}
		if err := yaml.Unmarshal(raw, fromFile); err != nil {
			return nil, merrors.Wrap(merrors.ErrParse, "failed to parse config YAML", err)
		}

		if err := mergo.Merge(cfg, fromFile, mergo.WithOverride); err != nil {
			return nil, merrors.Wrap(merrors.ErrConfig, "failed to merge config layers", err)
		}
	}

	applyEnvOverrides(cfg, l.env)
	return cfg, nil
}

// ApplyOverrides merges a CLI-sourced partial config on top of cfg,
// representing the highest-priority layer in §6.3.
func ApplyOverrides(cfg *Config, overrides *Config) error {
	if overrides == nil {
		return nil
	}
	if err := mergo.Merge(cfg, overrides, mergo.WithOverride); err != nil {
		return merrors.Wrap(merrors.ErrConfig, "failed to apply CLI overrides", err)
	}
	return nil
}
