package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// File stores each key in its own file under a directory. Single file per key,
// human-readable, portable. A sibling .lock file serializes writers across
// processes.
type File struct {
	dir string
}

const lockRetryDelay = 10 * time.Millisecond

func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("file store: empty data dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &File{dir: dir}, nil
}

// Dir is the directory the store writes into.
func (s *File) Dir() string { return s.dir }

// Path returns the file backing key.
func (s *File) Path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

func (s *File) Get(ctx context.Context, key string) (string, bool, error) {
	unlock, err := s.lock(ctx, key, false)
	if err != nil {
		return "", false, err
	}
	defer unlock()
	return s.read(key)
}

func (s *File) Set(ctx context.Context, key, value string) error {
	unlock, err := s.lock(ctx, key, true)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(key, value)
}

func (s *File) CompareAndSwap(ctx context.Context, key, old, new string) (bool, error) {
	unlock, err := s.lock(ctx, key, true)
	if err != nil {
		return false, err
	}
	defer unlock()

	cur, _, err := s.read(key)
	if err != nil {
		return false, err
	}
	if cur != old {
		return false, nil
	}
	if err := s.write(key, new); err != nil {
		return false, err
	}
	return true, nil
}

func (s *File) Close() error { return nil }

func (s *File) lock(ctx context.Context, key string, exclusive bool) (func(), error) {
	fl := flock.New(s.Path(key) + ".lock")
	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	if !locked {
		return nil, fmt.Errorf("lock %s: not acquired", key)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (s *File) read(key string) (string, bool, error) {
	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read file: %w", err)
	}
	return string(b), true, nil
}

// write replaces the file through a temp file and rename so readers never see
// a half-written value.
func (s *File) write(key, value string) error {
	tmp, err := os.CreateTemp(s.dir, fileName(key)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// fileName maps a key to a safe file name.
func fileName(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		name = "_"
	}
	return name + ".json"
}
