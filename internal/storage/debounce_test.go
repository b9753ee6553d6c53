package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dori/buebu/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saveRecorder struct {
	mu    sync.Mutex
	saves [][]model.Project
}

func (r *saveRecorder) save(_ context.Context, projects []model.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, projects)
}

func (r *saveRecorder) all() [][]model.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]model.Project(nil), r.saves...)
}

func snapshotN(n int) []model.Project {
	out := make([]model.Project, n)
	for i := range out {
		out[i] = model.Project{ID: string(rune('a' + i))}
	}
	return out
}

func TestDebouncerCoalescesWithinWindow(t *testing.T) {
	rec := &saveRecorder{}
	d := NewDebouncer(30*time.Millisecond, rec.save)

	const n = 8
	for i := 1; i <= n; i++ {
		d.Schedule(snapshotN(i))
	}

	assert.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)

	// Give a stray timer the chance to fire a second write.
	time.Sleep(100 * time.Millisecond)
	saves := rec.all()
	require.Len(t, saves, 1)
	assert.Len(t, saves[0], n)
	assert.False(t, d.Pending())
}

func TestDebouncerFlushWritesOnlyLatest(t *testing.T) {
	rec := &saveRecorder{}
	d := NewDebouncer(time.Hour, rec.save)

	d.Schedule(snapshotN(1))
	d.Schedule(snapshotN(2))
	d.Schedule(snapshotN(3))
	assert.True(t, d.Pending())

	d.Flush()
	d.Flush()

	saves := rec.all()
	require.Len(t, saves, 1)
	assert.Len(t, saves[0], 3)
}

func TestDebouncerSeparateWindowsWriteTwice(t *testing.T) {
	rec := &saveRecorder{}
	d := NewDebouncer(10*time.Millisecond, rec.save)

	d.Schedule(snapshotN(1))
	assert.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)

	d.Schedule(snapshotN(2))
	assert.Eventually(t, func() bool { return len(rec.all()) == 2 }, time.Second, 5*time.Millisecond)

	saves := rec.all()
	assert.Len(t, saves[1], 2)
}

func TestDebouncerStopFlushesAndIgnoresLaterChanges(t *testing.T) {
	rec := &saveRecorder{}
	d := NewDebouncer(time.Hour, rec.save)

	d.Schedule(snapshotN(2))
	d.Stop()
	d.Schedule(snapshotN(5))
	d.Flush()

	saves := rec.all()
	require.Len(t, saves, 1)
	assert.Len(t, saves[0], 2)
}
