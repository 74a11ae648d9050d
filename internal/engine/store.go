package engine

import (
	"sync"

	"github.com/op/go-logging"

	"github.com/coffersTech/logdash/internal/model"
)

var log = logging.MustGetLogger("engine")

// Store holds the current collection and the one it replaced.
// Collections are swapped wholesale; mu only protects the two pointers.
type Store struct {
	mu       sync.RWMutex
	current  *Collection
	previous *Collection
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Replace installs c as the current collection and returns the one it displaced.
func (s *Store) Replace(c *Collection) *Collection {
	s.mu.Lock()
	prev := s.current
	s.previous = prev
	s.current = c
	s.mu.Unlock()

	log.Infof("Collection replaced: batch=%s source=%q records=%d (previous %d)",
		c.BatchID(), c.Source(), c.Len(), prev.Len())
	return prev
}

// Current returns the current collection, or nil before the first upload.
func (s *Store) Current() *Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Previous returns the collection displaced by the last Replace.
func (s *Store) Previous() *Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.previous
}

// Snapshot returns both slots under one lock.
func (s *Store) Snapshot() (current, previous *Collection) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.previous
}

// Empty reports whether no collection has been loaded yet.
func (s *Store) Empty() bool {
	return s.Current() == nil
}

// ErrorLogs returns the current records, or an empty slice.
func (s *Store) ErrorLogs() []model.LogRecord {
	return s.Current().Records()
}
