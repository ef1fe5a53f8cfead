package router

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/logger"
)

// LoggingMiddleware logs before/after/error events, redacting argument
// values whose key matches the configured redact policy (§4.2).
type LoggingMiddleware struct {
	RedactKeys map[string]bool
}

// NewLoggingMiddleware builds a LoggingMiddleware with a default redact
// policy covering common secret-shaped argument names.
func NewLoggingMiddleware(extraRedactKeys ...string) *LoggingMiddleware {
	keys := map[string]bool{
		"password": true, "token": true, "secret": true, "api_key": true, "apikey": true,
	}
	for _, k := range extraRedactKeys {
		keys[k] = true
	}
	return &LoggingMiddleware{RedactKeys: keys}
}

func (m *LoggingMiddleware) redacted(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		if m.RedactKeys[k] {
			out[k] = "***redacted***"
			continue
		}
		out[k] = v
	}
	return out
}

// BeforeExecution implements Middleware.
func (m *LoggingMiddleware) BeforeExecution(mc *MiddlewareContext) error {
	logger.Infow("dispatching tool call", "tool_name", mc.ToolName, "agent_kind", mc.AgentKind, "arguments", m.redacted(mc.Arguments))
	return nil
}

// AfterExecution implements Middleware.
func (m *LoggingMiddleware) AfterExecution(mc *MiddlewareContext, result *AgentResult) error {
	logger.Infow("tool call completed", "tool_name", mc.ToolName, "agent_kind", mc.AgentKind, "success", result.Success)
	return nil
}

// OnError implements Middleware.
func (m *LoggingMiddleware) OnError(mc *MiddlewareContext, err error) error {
	logger.Errorw("tool call failed", "tool_name", mc.ToolName, "agent_kind", mc.AgentKind, "error", err.Error())
	return nil
}

// MetricsMiddleware records request/success/error counters and wall-time
// histograms per agent_kind/tool_name (§4.2).
type MetricsMiddleware struct {
	requests  *prometheus.CounterVec
	successes *prometheus.CounterVec
	errors    *prometheus.CounterVec
	duration  *prometheus.HistogramVec

	mu     sync.Mutex
	starts map[*MiddlewareContext]time.Time // keyed by call, so concurrent calls to the same tool don't clobber each other
}

// NewMetricsMiddleware registers (or reuses, if already registered) the
// router's request/success/error/duration metrics against reg.
func NewMetricsMiddleware(reg prometheus.Registerer) *MetricsMiddleware {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "magictunnel_router_requests_total",
		Help: "Total tool-call dispatches by agent kind and tool name.",
	}, []string{"agent_kind", "tool_name"})
	successes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "magictunnel_router_successes_total",
		Help: "Total successful tool-call dispatches by agent kind and tool name.",
	}, []string{"agent_kind", "tool_name"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "magictunnel_router_errors_total",
		Help: "Total failed tool-call dispatches by agent kind and tool name.",
	}, []string{"agent_kind", "tool_name"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "magictunnel_router_duration_seconds",
		Help:    "Tool-call wall time by agent kind and tool name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent_kind", "tool_name"})

	if reg != nil {
		_ = reg.Register(requests)
		_ = reg.Register(successes)
		_ = reg.Register(errs)
		_ = reg.Register(duration)
	}

	return &MetricsMiddleware{requests: requests, successes: successes, errors: errs, duration: duration, starts: make(map[*MiddlewareContext]time.Time)}
}

// BeforeExecution implements Middleware.
func (m *MetricsMiddleware) BeforeExecution(mc *MiddlewareContext) error {
	m.requests.WithLabelValues(string(mc.AgentKind), mc.ToolName).Inc()
	m.mu.Lock()
	m.starts[mc] = time.Now()
	m.mu.Unlock()
	return nil
}

// AfterExecution implements Middleware.
func (m *MetricsMiddleware) AfterExecution(mc *MiddlewareContext, result *AgentResult) error {
	m.observeDuration(mc)
	if result.Success {
		m.successes.WithLabelValues(string(mc.AgentKind), mc.ToolName).Inc()
	} else {
		m.errors.WithLabelValues(string(mc.AgentKind), mc.ToolName).Inc()
	}
	return nil
}

// OnError implements Middleware.
func (m *MetricsMiddleware) OnError(mc *MiddlewareContext, _ error) error {
	m.observeDuration(mc)
	m.errors.WithLabelValues(string(mc.AgentKind), mc.ToolName).Inc()
	return nil
}

func (m *MetricsMiddleware) observeDuration(mc *MiddlewareContext) {
	m.mu.Lock()
	start, ok := m.starts[mc]
	delete(m.starts, mc)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.duration.WithLabelValues(string(mc.AgentKind), mc.ToolName).Observe(time.Since(start).Seconds())
}
