package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
)

// eventBufferSize bounds each subscriber's event channel (§4.8 "bounded
// channel; slow subscribers drop oldest").
const eventBufferSize = 32

type subscriber struct {
	ch chan Event
}

type trackedSession struct {
	session     Session
	subscribers map[int]*subscriber
	nextSubID   int
}

// DefaultMaxSessions is the concurrent-session cap applied when a caller
// doesn't have a more specific limit in mind.
const DefaultMaxSessions = 256

// Tracker owns progress sessions keyed by uuid (§4.8). maxSessions bounds
// how many sessions may be tracked concurrently (§4.8 "the progress
// tracker enforces a max concurrent session count"); maxSessions <= 0
// means unlimited, matching the 0-means-unlimited convention used by
// BackendConfig.MaxReconnectAttempts elsewhere in this codebase.
type Tracker struct {
	mu             sync.Mutex
	sessions       map[string]*trackedSession
	sessionTimeout time.Duration
	maxSessions    int
}

// NewTracker builds a Tracker. sessionTimeout of 0 disables the
// timeout-to-Failed transition; maxSessions of 0 or less disables the
// concurrent-session cap.
func NewTracker(sessionTimeout time.Duration, maxSessions int) *Tracker {
	return &Tracker{sessions: make(map[string]*trackedSession), sessionTimeout: sessionTimeout, maxSessions: maxSessions}
}

// Create starts a new session and returns its id (§4.8 "create"),
// rejecting the request once maxSessions concurrent sessions are tracked.
func (t *Tracker) Create(metadata map[string]any) (string, error) {
	t.mu.Lock()
	if t.maxSessions > 0 && len(t.sessions) >= t.maxSessions {
		t.mu.Unlock()
		return "", merrors.New(merrors.ErrValidation, "progress tracker at capacity").WithData("max_sessions", t.maxSessions)
	}

	id := uuid.NewString()
	now := time.Now()
	t.sessions[id] = &trackedSession{
		session: Session{
			ID:        id,
			State:     StateRunning,
			Metadata:  metadata,
			CreatedAt: now,
			UpdatedAt: now,
		},
		subscribers: make(map[int]*subscriber),
	}
	t.mu.Unlock()
	return id, nil
}

func (t *Tracker) get(id string) (*trackedSession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ts, ok := t.sessions[id]
	if !ok {
		return nil, merrors.New(merrors.ErrValidation, "no progress session "+id)
	}
	return ts, nil
}

// Update mutates a session's state and metadata, broadcasting an Event
// (§4.8 "update(state, sub_ops_delta, metadata_delta)").
func (t *Tracker) Update(id string, state State, metadataDelta map[string]any) error {
	t.mu.Lock()
	ts, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return merrors.New(merrors.ErrValidation, "no progress session "+id)
	}
	if state != "" {
		ts.session.State = state
	}
	if ts.session.Metadata == nil {
		ts.session.Metadata = make(map[string]any, len(metadataDelta))
	}
	for k, v := range metadataDelta {
		ts.session.Metadata[k] = v
	}
	ts.session.UpdatedAt = time.Now()
	t.mu.Unlock()

	t.broadcast(id)
	return nil
}

// AddSubOperations appends named sub-operations in Running state (§4.8
// "add_sub_operations").
func (t *Tracker) AddSubOperations(id string, names ...string) error {
	t.mu.Lock()
	ts, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return merrors.New(merrors.ErrValidation, "no progress session "+id)
	}
	for _, name := range names {
		ts.session.SubOps = append(ts.session.SubOps, SubOperation{Name: name, State: StateRunning})
	}
	ts.session.UpdatedAt = time.Now()
	t.mu.Unlock()

	t.broadcast(id)
	return nil
}

func (t *Tracker) setSubOpState(id, name string, state State) error {
	t.mu.Lock()
	ts, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return merrors.New(merrors.ErrValidation, "no progress session "+id)
	}
	found := false
	now := time.Now()
	for i := range ts.session.SubOps {
		if ts.session.SubOps[i].Name != name {
			continue
		}
		found = true
		ts.session.SubOps[i].State = state
		if state == StateRunning {
			ts.session.SubOps[i].StartedAt = now
		} else {
			ts.session.SubOps[i].EndedAt = now
		}
	}
	ts.session.UpdatedAt = now
	t.mu.Unlock()

	if !found {
		return merrors.New(merrors.ErrValidation, "no sub-operation "+name+" on session "+id)
	}
	t.broadcast(id)
	return nil
}

// StartSubOperation transitions a named sub-operation to Running (§4.8).
func (t *Tracker) StartSubOperation(id, name string) error {
	return t.setSubOpState(id, name, StateRunning)
}

// CompleteSubOperation transitions a named sub-operation to Completed (§4.8).
func (t *Tracker) CompleteSubOperation(id, name string) error {
	return t.setSubOpState(id, name, StateCompleted)
}

// FailSubOperation transitions a named sub-operation to Failed (§4.8).
func (t *Tracker) FailSubOperation(id, name string) error {
	return t.setSubOpState(id, name, StateFailed)
}

// Complete marks a session Completed (§4.8).
func (t *Tracker) Complete(id string) error {
	return t.Update(id, StateCompleted, nil)
}

// Fail marks a session Failed with reason (§4.8).
func (t *Tracker) Fail(id, reason string) error {
	t.mu.Lock()
	ts, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return merrors.New(merrors.ErrValidation, "no progress session "+id)
	}
	ts.session.State = StateFailed
	ts.session.FailureReason = reason
	ts.session.UpdatedAt = time.Now()
	t.mu.Unlock()

	t.broadcast(id)
	return nil
}

// Get returns a snapshot copy of a session's current state.
func (t *Tracker) Get(id string) (Session, error) {
	ts, err := t.get(id)
	if err != nil {
		return Session{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return ts.session, nil
}

// SubscribeEvents returns a channel of Events for id and an unsubscribe
// func (§4.8 "subscribe_events"). Slow subscribers drop the oldest
// buffered event rather than the newest, so a subscriber that falls
// behind still sees the most recent state.
func (t *Tracker) SubscribeEvents(id string) (<-chan Event, func(), error) {
	ts, err := t.get(id)
	if err != nil {
		return nil, nil, err
	}

	t.mu.Lock()
	subID := ts.nextSubID
	ts.nextSubID++
	sub := &subscriber{ch: make(chan Event, eventBufferSize)}
	ts.subscribers[subID] = sub
	t.mu.Unlock()

	unsubscribe := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if cur, ok := t.sessions[id]; ok {
			delete(cur.subscribers, subID)
		}
	}
	return sub.ch, unsubscribe, nil
}

func (t *Tracker) broadcast(id string) {
	t.mu.Lock()
	ts, ok := t.sessions[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	event := Event{
		SessionID: ts.session.ID,
		State:     ts.session.State,
		Metadata:  ts.session.Metadata,
		SubOps:    append([]SubOperation(nil), ts.session.SubOps...),
		Timestamp: ts.session.UpdatedAt,
	}
	subs := make([]*subscriber, 0, len(ts.subscribers))
	for _, s := range ts.subscribers {
		subs = append(subs, s)
	}
	t.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- event:
		default:
			// Buffer full: drop the oldest queued event to make room for
			// the newest one (§4.8 "drop oldest, not newest").
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- event:
			default:
			}
		}
	}
}

// SweepTimeouts transitions any Running session whose last update is
// older than the configured session timeout to Failed (§4.8 "Sessions
// exceeding session_timeout transition to Failed with a timeout
// reason"). Callers run this on a ticker.
func (t *Tracker) SweepTimeouts() {
	if t.sessionTimeout <= 0 {
		return
	}
	cutoff := time.Now().Add(-t.sessionTimeout)

	t.mu.Lock()
	var expired []string
	for id, ts := range t.sessions {
		if ts.session.State == StateRunning && ts.session.UpdatedAt.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	t.mu.Unlock()

	for _, id := range expired {
		_ = t.Fail(id, "session timed out")
	}
}
