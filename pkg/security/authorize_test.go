package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowAll_AlwaysAllows(t *testing.T) {
	h := AllowAll{}
	decision := h.Authorize(context.Background(), Context{ToolName: "anything"})
	assert.True(t, decision.Allow)
}

func TestDenied_CarriesReason(t *testing.T) {
	decision := Denied("no access")
	assert.False(t, decision.Allow)
	assert.Equal(t, "no access", decision.Reason)
}
