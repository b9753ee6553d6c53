package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dori/buebu/internal/db"
)

// SQLiteBackend is the structured primary tier. The database is opened on
// first use and reused afterwards; if opening fails, the backend stays
// unavailable for the rest of the process.
type SQLiteBackend struct {
	path string

	once    sync.Once
	db      *db.DB
	openErr error

	// mu keeps Close from tearing the handle down under a running call.
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteBackend returns a backend for the database file at path.
func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

func (b *SQLiteBackend) Name() string { return "sqlite" }

func (b *SQLiteBackend) handle() (*db.DB, error) {
	b.once.Do(func() {
		b.db, b.openErr = db.Open(b.path)
		if b.openErr != nil {
			b.openErr = fmt.Errorf("%w: %v", ErrUnavailable, b.openErr)
		}
	})
	return b.db, b.openErr
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrUnavailable
	}

	conn, err := b.handle()
	if err != nil {
		return nil, err
	}

	value, err := conn.GetValue(ctx, key)
	if errors.Is(err, db.ErrNoValue) {
		return nil, ErrNotFound
	}
	return value, err
}

func (b *SQLiteBackend) Put(ctx context.Context, key string, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrUnavailable
	}

	conn, err := b.handle()
	if err != nil {
		return err
	}
	return conn.PutValue(ctx, key, value)
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrUnavailable
	}

	conn, err := b.handle()
	if err != nil {
		return err
	}
	return conn.DeleteValue(ctx, key)
}

// Close waits for in-flight calls and closes the database if it was opened.
func (b *SQLiteBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
