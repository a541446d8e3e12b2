// Package kv is the key-value boundary the task collection is persisted through.
//
// Every backend stores opaque string values under string keys. CompareAndSwap
// is what makes concurrent writers visible: a writer that read a stale value
// fails instead of silently overwriting the newer one.
package kv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key unconditionally.
	Set(ctx context.Context, key, value string) error
	// CompareAndSwap stores new under key only if the current value equals old.
	// An absent key matches old == "".
	CompareAndSwap(ctx context.Context, key, old, new string) (swapped bool, err error)
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMySQL  = "mysql"
)

// ErrUnknownBackend is returned by Open for a backend name it does not know.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Options selects and configures a backend.
type Options struct {
	Backend string
	DataDir string // file backend
	DSN     string // mysql backend
}

// Open returns the backend named by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		return NewFile(filepath.Clean(opts.DataDir))
	case BackendMySQL:
		return OpenMySQL(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
