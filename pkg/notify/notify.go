// Package notify implements the logging/notification fan-out manager
// (§4.6): server-to-client MCP notifications distributed to whichever
// transport-specific subscribers are attached, with the logging
// notification channel token-bucket limited.
package notify

import (
	"sync"

	"golang.org/x/time/rate"
)

// Notification is one server-initiated MCP notification (§4.6): a
// JSON-RPC notification object with no id.
type Notification struct {
	Method string
	Params map[string]any
}

// The notification methods fanned out by a Manager (§4.6).
const (
	MethodToolsListChanged     = "notifications/tools/list_changed"
	MethodResourcesListChanged = "notifications/resources/list_changed"
	MethodPromptsListChanged   = "notifications/prompts/list_changed"
	MethodMessage              = "notifications/message"
)

// subBufferSize bounds each subscriber's notification channel; a full
// channel drops the notification rather than blocking the publisher.
const subBufferSize = 64

// Manager fans notifications out to every subscribed transport (§4.6).
// MethodMessage (log) notifications are rate-limited in PublishLog by a
// caller-held token bucket from LogLimiter (one per logger/session), not
// per subscriber.
type Manager struct {
	mu          sync.Mutex
	subscribers map[int]chan Notification
	nextID      int
	logRate     int
}

// NewManager builds a Manager. logRatePerSecond of 0 disables rate
// limiting on log notifications.
func NewManager(logRatePerSecond int) *Manager {
	return &Manager{subscribers: make(map[int]chan Notification), logRate: logRatePerSecond}
}

// Subscribe registers a new transport-side listener and returns its
// channel plus an unsubscribe func.
func (m *Manager) Subscribe() (<-chan Notification, func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	ch := make(chan Notification, subBufferSize)
	m.subscribers[id] = ch
	m.mu.Unlock()

	return ch, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.subscribers[id]; ok {
			close(cur)
			delete(m.subscribers, id)
		}
	}
}

// Publish fans n out to every current subscriber, dropping it for any
// subscriber whose channel is full rather than blocking (§4.6 implies
// notifications are best-effort relative to request/response traffic).
func (m *Manager) Publish(n Notification) {
	m.mu.Lock()
	chans := make([]chan Notification, 0, len(m.subscribers))
	for _, ch := range m.subscribers {
		chans = append(chans, ch)
	}
	m.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- n:
		default:
		}
	}
}

// LogLimiter builds a fresh token-bucket limiter sized to the Manager's
// configured log notification rate (§4.6 "token bucket, default ~100/s
// per logger"). Callers hold one limiter per logger/session.
func (m *Manager) LogLimiter() *rate.Limiter {
	if m.logRate <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(m.logRate), m.logRate)
}

// PublishLog publishes a MethodMessage notification only if limiter
// admits it, dropping the notification otherwise (§4.6 rate limiting).
func (m *Manager) PublishLog(limiter *rate.Limiter, params map[string]any) {
	if !limiter.Allow() {
		return
	}
	m.Publish(Notification{Method: MethodMessage, Params: params})
}
