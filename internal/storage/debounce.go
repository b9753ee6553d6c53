package storage

import (
	"context"
	"sync"
	"time"

	"github.com/dori/buebu/internal/model"
)

// SaveFunc persists a full snapshot.
type SaveFunc func(ctx context.Context, projects []model.Project)

// Debouncer coalesces rapid snapshot changes into a single write. Every
// Schedule call replaces the pending snapshot and restarts the timer; only the
// snapshot present when the timer fires is written.
type Debouncer struct {
	delay time.Duration
	save  SaveFunc

	mu      sync.Mutex
	timer   *time.Timer
	pending []model.Project
	dirty   bool
	stopped bool

	// saveMu serializes writes so an older snapshot never lands after a newer one.
	saveMu sync.Mutex
}

// NewDebouncer returns a debouncer that calls save delay after the last change.
func NewDebouncer(delay time.Duration, save SaveFunc) *Debouncer {
	return &Debouncer{delay: delay, save: save}
}

// Schedule records projects as the next snapshot to write and restarts the
// timer. Calls after Stop are ignored.
func (d *Debouncer) Schedule(projects []model.Project) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.pending = projects
	d.dirty = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

// Pending reports whether a snapshot is waiting to be written.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

// Flush writes the pending snapshot now, if there is one.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.fire()
}

// Stop flushes the pending snapshot and ignores later changes.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	d.Flush()
}

func (d *Debouncer) fire() {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()

	d.mu.Lock()
	if !d.dirty {
		d.mu.Unlock()
		return
	}
	projects := d.pending
	d.pending = nil
	d.dirty = false
	d.mu.Unlock()

	d.save(context.Background(), projects)
}
