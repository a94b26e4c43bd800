// Package store is the transactional key/value layer under the embedded
// engine. Two backends are provided: Badger (in-memory or on disk) and
// SQLite through modernc.org/sqlite.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned by Txn.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// ErrConflict is returned by Txn.Commit when a concurrent transaction
// changed the same keys.
var ErrConflict = errors.New("transaction conflict")

// Store opens transactions over one key space.
type Store interface {
	Begin(ctx context.Context, writable bool) (Txn, error)
	Close() error
}

// Txn is a single transaction. It is not safe for concurrent use.
// Keys returns matching keys in ascending order.
type Txn interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Commit() error
	Discard()
}

// Options selects and configures a backend.
type Options struct {
	Backend  string // "badger" or "sqlite"
	DataDir  string
	InMemory bool
}

// Open opens the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "badger":
		return OpenBadger(opts.DataDir, opts.InMemory)
	case "sqlite":
		path := ""
		if !opts.InMemory {
			path = filepath.Join(opts.DataDir, "sedna.db")
		}
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown store backend: %q", opts.Backend)
	}
}
