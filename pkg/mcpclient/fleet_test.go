package mcpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/config"
)

func TestFleet_CallTool_RoutesToSession(t *testing.T) {
	f := NewFleet(nil, nil)
	f.sessions["github"] = newReadySession(&fakeMCPClient{})

	_, err := f.CallTool(context.Background(), "github", "list_issues", nil)
	require.NoError(t, err)
}

func TestFleet_CallTool_UnknownBackend(t *testing.T) {
	f := NewFleet(nil, nil)
	_, err := f.CallTool(context.Background(), "missing", "t", nil)
	assert.Error(t, err)
}

func TestFleet_Status_ReportsAllSessions(t *testing.T) {
	f := NewFleet([]config.BackendConfig{{ID: "a", Transport: "stdio"}, {ID: "b", Transport: "sse"}}, nil)
	statuses := f.Status()
	assert.Len(t, statuses, 2)
}

func TestFleet_Session_LooksUpByID(t *testing.T) {
	f := NewFleet([]config.BackendConfig{{ID: "a", Transport: "stdio"}}, nil)
	s, ok := f.Session("a")
	require.True(t, ok)
	assert.Equal(t, "a", s.ID())

	_, ok = f.Session("missing")
	assert.False(t, ok)
}
