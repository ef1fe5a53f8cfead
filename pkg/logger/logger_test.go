package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubEnv struct{ v string }

func (s stubEnv) Getenv(string) string { return s.v }

func TestUnstructuredLogsWithEnv(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		envValue string
		want     bool
	}{
		{"default", "", true},
		{"explicit true", "true", true},
		{"explicit false", "false", false},
		{"invalid value", "not-a-bool", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := unstructuredLogsWithEnv(stubEnv{v: tt.envValue})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogFunctionsDoNotPanic(t *testing.T) {
	Debug("debug msg")
	Debugf("debug %s", "formatted")
	Debugw("debug kv", "key", "val")
	Info("info msg")
	Infof("info %s", "formatted")
	Infow("info kv", "key", "val")
	Warn("warn msg")
	Warnf("warn %s", "formatted")
	Warnw("warn kv", "key", "val")
	Error("error msg")
	Errorf("error %s", "formatted")
	Errorw("error kv", "key", "val")
}

func TestInitializeRebuildsSingleton(t *testing.T) {
	before := current()
	Initialize()
	after := current()
	assert.NotNil(t, before)
	assert.NotNil(t, after)
}
