// Package storage persists the project collection as a single snapshot across
// an ordered list of key/value backends. The first backend that works wins;
// failures fall through to the next one and are never returned to callers.
package storage

import (
	"context"
	"errors"
)

// SnapshotKey is the key the project collection is stored under.
const SnapshotKey = "projects"

var (
	// ErrNotFound is returned by Backend.Get when the key has no value.
	ErrNotFound = errors.New("storage: key not found")

	// ErrUnavailable is returned by backends that cannot operate in the
	// current environment.
	ErrUnavailable = errors.New("storage: backend unavailable")
)

// Backend is a key-addressed store. Every method must fail fast when the
// backend is unusable so the engine can move on to the next tier.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Absent is a backend that does not exist in this runtime. Every call fails
// immediately with ErrUnavailable.
type Absent struct {
	Label string
}

func (a Absent) Name() string {
	if a.Label == "" {
		return "absent"
	}
	return a.Label
}

func (Absent) Get(context.Context, string) ([]byte, error) { return nil, ErrUnavailable }
func (Absent) Put(context.Context, string, []byte) error { return ErrUnavailable }
func (Absent) Delete(context.Context, string) error { return ErrUnavailable }
func (Absent) Close() error { return nil }
