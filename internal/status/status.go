// Package status tracks the loading flag and the user-facing error message
// shared by every workflow.
package status

import "sync"

// Snapshot is a point-in-time copy of the flags, used for rendering.
type Snapshot struct {
	Loading bool
	Error   string
}

// HasError reports whether an error message is set.
func (s Snapshot) HasError() bool {
	return s.Error != ""
}

// Store holds the flags. Nothing sets them automatically; callers pair
// StartLoading with StopLoading around each run.
type Store struct {
	mu      sync.RWMutex
	loading bool
	err     string
}

// NewStore creates a store that is idle with no error.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) StartLoading() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

func (s *Store) StopLoading() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

// SetError records a short, user-safe message. An empty message clears it.
func (s *Store) SetError(message string) {
	s.mu.Lock()
	s.err = message
	s.mu.Unlock()
}

func (s *Store) ClearError() {
	s.SetError("")
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the current message, if one is set.
func (s *Store) Error() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err, s.err != ""
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Loading: s.loading, Error: s.err}
}
