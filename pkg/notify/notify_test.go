package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_PublishDeliversToSubscribers(t *testing.T) {
	m := NewManager(0)
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.Publish(Notification{Method: MethodToolsListChanged})

	select {
	case n := <-ch:
		assert.Equal(t, MethodToolsListChanged, n.Method)
	case <-time.After(time.Second):
		t.Fatal("expected a notification")
	}
}

func TestManager_Unsubscribe_StopsDelivery(t *testing.T) {
	m := NewManager(0)
	ch, unsubscribe := m.Subscribe()
	unsubscribe()

	m.Publish(Notification{Method: MethodToolsListChanged})

	_, ok := <-ch
	assert.False(t, ok)
}

func TestManager_Publish_DropsWhenSubscriberFull(t *testing.T) {
	m := NewManager(0)
	_, unsubscribe := m.Subscribe()
	defer unsubscribe()

	for i := 0; i < subBufferSize+10; i++ {
		m.Publish(Notification{Method: MethodMessage})
	}
}

func TestManager_LogLimiter_RespectsConfiguredRate(t *testing.T) {
	m := NewManager(1)
	limiter := m.LogLimiter()

	require.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestManager_LogLimiter_UnlimitedWhenZero(t *testing.T) {
	m := NewManager(0)
	limiter := m.LogLimiter()
	for i := 0; i < 1000; i++ {
		require.True(t, limiter.Allow())
	}
}

func TestManager_PublishLog_DropsWhenRateExceeded(t *testing.T) {
	m := NewManager(1)
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()
	limiter := m.LogLimiter()

	m.PublishLog(limiter, map[string]any{"msg": "first"})
	m.PublishLog(limiter, map[string]any{"msg": "second"})

	first := <-ch
	assert.Equal(t, "first", first.Params["msg"])

	select {
	case <-ch:
		t.Fatal("second log notification should have been dropped")
	case <-time.After(50 * time.Millisecond):
	}
}
