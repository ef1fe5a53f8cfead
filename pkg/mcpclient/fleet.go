package mcpclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/config"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/logger"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

const defaultHealthCheckInterval = 30 * time.Second

// Fleet owns one Session per configured backend and implements the
// agents.BackendCaller contract the router's external_mcp agent kind
// dispatches through (§4.3).
type Fleet struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	healthCheckInterval time.Duration
	cancel              context.CancelFunc
}

// NewFleet builds a Fleet from backend configs, constructing one Session
// per backend. forwarder is shared across sessions that need reverse
// request support; it may be nil.
func NewFleet(backends []config.BackendConfig, forwarder RequestForwarder) *Fleet {
	sessions := make(map[string]*Session, len(backends))
	for _, b := range backends {
		sessions[b.ID] = NewSession(b, forwarder)
	}
	return &Fleet{sessions: sessions, healthCheckInterval: defaultHealthCheckInterval}
}

// Start connects every session concurrently and begins background health
// monitoring. Per-backend connect failures are logged and do not abort the
// others; Start itself never fails on their account.
func (f *Fleet) Start(ctx context.Context) {
	hctx, cancel := context.WithCancel(ctx)
	f.cancel = cancel

	f.mu.RLock()
	sessions := make([]*Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		sessions = append(sessions, s)
	}
	f.mu.RUnlock()

	var eg errgroup.Group
	for _, s := range sessions {
		s := s
		eg.Go(func() error {
			if err := s.Connect(ctx); err != nil {
				logger.Errorw("backend connect failed", "backend_id", s.ID(), "error", err.Error())
			}
			return nil
		})
	}
	_ = eg.Wait()

	go f.healthLoop(hctx)
}

func (f *Fleet) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(f.healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.RLock()
			sessions := make([]*Session, 0, len(f.sessions))
			for _, s := range f.sessions {
				sessions = append(sessions, s)
			}
			f.mu.RUnlock()

			for _, s := range sessions {
				if err := s.Ping(ctx); err != nil {
					logger.Warnw("backend health check failed, reconnecting", "backend_id", s.ID(), "error", err.Error())
					go func(s *Session) {
						if err := s.Reconnect(ctx); err != nil {
							logger.Errorw("backend reconnect exhausted", "backend_id", s.ID(), "error", err.Error())
						}
					}(s)
				}
			}
		}
	}
}

// CallTool implements agents.BackendCaller by dispatching to the named
// backend's Session.
func (f *Fleet) CallTool(ctx context.Context, backendID, toolName string, arguments map[string]any) (json.RawMessage, error) {
	f.mu.RLock()
	session, ok := f.sessions[backendID]
	f.mu.RUnlock()
	if !ok {
		return nil, merrors.New(merrors.ErrBackend, "unknown backend_id "+backendID)
	}
	return session.CallTool(ctx, toolName, arguments)
}

// Status returns a snapshot of every backend session (§4.3).
func (f *Fleet) Status() []Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Status, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s.Status())
	}
	return out
}

// Session returns the session for backendID, if any.
func (f *Fleet) Session(backendID string) (*Session, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.sessions[backendID]
	return s, ok
}

// Close shuts down every session and stops health monitoring.
func (f *Fleet) Close() error {
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.RLock()
	sessions := make([]*Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		sessions = append(sessions, s)
	}
	f.mu.RUnlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
