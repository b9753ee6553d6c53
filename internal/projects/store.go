// Package projects holds the in-memory project collection and the pointer to
// the project currently on screen.
package projects

import (
	"sync"
	"time"

	"github.com/dori/buebu/internal/model"
)

// Store is the only writer of the project collection. Projects are kept
// newest first.
type Store struct {
	mu        sync.RWMutex
	projects  []model.Project
	activeID  string
	now       func() time.Time
	listeners []func([]model.Project)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// OnChange registers fn to receive a copy of the collection after every
// change to it. Changing only the active project does not notify.
func (s *Store) OnChange(fn func([]model.Project)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetAll replaces the whole collection. The active project is left alone.
func (s *Store) SetAll(projects []model.Project) {
	s.mu.Lock()
	s.projects = append([]model.Project(nil), projects...)
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
}

// Select makes id the active project. An empty id clears the selection. The
// id is not checked against the collection.
func (s *Store) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeID = id
}

// CreateFromGenerated stores a finished generation as a new project at the
// head of the collection and makes it active.
func (s *Store) CreateFromGenerated(title, prompt, blueprint, id string) model.Project {
	project := model.Project{
		ID:        id,
		Title:     title,
		Prompt:    prompt,
		Blueprint: blueprint,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	s.projects = append([]model.Project{project}, s.projects...)
	s.activeID = id
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return project
}

// Rename sets the title of the project with the given id. The title must
// already be validated. It reports whether the project was found.
func (s *Store) Rename(id, title string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.projects[idx].Title = title
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return true
}

// Remove deletes the project with the given id and clears the selection if it
// pointed at that project. It reports whether the project was found.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	kept := make([]model.Project, 0, len(s.projects)-1)
	kept = append(kept, s.projects[:idx]...)
	kept = append(kept, s.projects[idx+1:]...)
	s.projects = kept
	if s.activeID == id {
		s.activeID = ""
	}
	snapshot, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snapshot)
	return true
}

// Reset clears the selection, leaving the collection untouched.
func (s *Store) Reset() {
	s.Select("")
}

// Projects returns a copy of the collection, newest first.
func (s *Store) Projects() []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Project{}, s.projects...)
}

// Len returns the number of stored projects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}

// ActiveID returns the selected id, if any.
func (s *Store) ActiveID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID, s.activeID != ""
}

// Get looks up a project by id.
func (s *Store) Get(id string) (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.projects[idx], true
	}
	return model.Project{}, false
}

// Active returns the selected project. It reports false when nothing is
// selected or the selection does not resolve.
func (s *Store) Active() (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return model.Project{}, false
	}
	if idx := s.indexLocked(s.activeID); idx >= 0 {
		return s.projects[idx], true
	}
	return model.Project{}, false
}

func (s *Store) indexLocked(id string) int {
	for i := range s.projects {
		if s.projects[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() ([]model.Project, []func([]model.Project)) {
	if len(s.listeners) == 0 {
		return nil, nil
	}
	snapshot := append([]model.Project{}, s.projects...)
	listeners := append([]func([]model.Project){}, s.listeners...)
	return snapshot, listeners
}

func notify(listeners []func([]model.Project), snapshot []model.Project) {
	for _, fn := range listeners {
		fn(snapshot)
	}
}
