package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

var safeKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileBackend is the flat fallback tier: one JSON file per key in a
// directory. Writes go through a temp file and a rename while holding an
// exclusive file lock, so a reader never sees a half written snapshot.
type FileBackend struct {
	dir  string
	lock *flock.Flock

	// flock is per process; mu serializes writers inside this one.
	mu sync.Mutex
}

// NewFileBackend stores values under dir.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".buebu-store.lock")),
	}
}

func (b *FileBackend) Name() string { return "file" }

func (b *FileBackend) path(key string) (string, error) {
	if !safeKey.MatchString(key) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(b.dir, key+".json"), nil
}

func (b *FileBackend) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *FileBackend) Put(ctx context.Context, key string, value []byte) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}

	return b.withLock(ctx, func() error {
		tmp, err := os.CreateTemp(b.dir, key+".*.tmp")
		if err != nil {
			return fmt.Errorf("failed to create temp file: %w", err)
		}
		defer os.Remove(tmp.Name())

		if _, err := tmp.Write(value); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("failed to close snapshot: %w", err)
		}
		return os.Rename(tmp.Name(), p)
	})
}

func (b *FileBackend) Delete(ctx context.Context, key string) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}

	return b.withLock(ctx, func() error {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}

func (b *FileBackend) Close() error {
	return b.lock.Close()
}

func (b *FileBackend) withLock(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	locked, err := b.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock store: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to lock store: %s", b.dir)
	}
	defer b.lock.Unlock()

	return fn()
}
