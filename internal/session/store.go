// Package session keeps per-client view state on the server between a
// dashboard mounting and tearing down.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/op/go-logging"

	"github.com/coffersTech/logdash/internal/engine"
)

var log = logging.MustGetLogger("session")

// Session is one mounted dashboard view.
type Session struct {
	ID         string           `json:"id"`
	State      engine.ViewState `json:"state"`
	CreatedAt  int64            `json:"created_at"`
	LastSeenAt int64            `json:"last_seen_at"`
}

// Store holds live sessions in memory.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create registers a session starting from state.
func (s *Store) Create(state engine.ViewState) Session {
	now := time.Now().Unix()
	sess := &Session{
		ID:         uuid.NewString(),
		State:      state,
		CreatedAt:  now,
		LastSeenAt: now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return *sess
}

// Get returns a copy of the session and marks it as seen.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	sess.LastSeenAt = time.Now().Unix()
	return *sess, true
}

// Update applies fn to the session's state. If fn fails the state is kept.
func (s *Store) Update(id string, fn func(engine.ViewState) (engine.ViewState, error)) (Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false, nil
	}
	next, err := fn(sess.State)
	if err != nil {
		return *sess, true, err
	}
	sess.State = next
	sess.LastSeenAt = time.Now().Unix()
	return *sess, true, nil
}

// Delete removes a session. It reports whether one existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// PruneStale removes sessions not seen within timeout.
func (s *Store) PruneStale(timeout time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().Unix()
	timeoutSec := int64(timeout.Seconds())
	count := 0

	for id, sess := range s.sessions {
		if now-sess.LastSeenAt > timeoutSec {
			delete(s.sessions, id)
			count++
		}
	}
	return count
}

// RunCleanup prunes stale sessions every interval until ctx is done.
func (s *Store) RunCleanup(ctx context.Context, interval, timeout time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := s.PruneStale(timeout); n > 0 {
				log.Infof("Pruned %d idle view sessions", n)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
