// Package jsonstore persists the whole task collection as one JSON array under
// a single key of a kv.Store.
//
// Every save rewrites the full array. The blob last read or written doubles as
// a version token: Save only succeeds if the stored blob still equals the one
// the caller started from.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/kv"
)

// DefaultKey is the key the collection lives under.
const DefaultKey = "my-todo"

var (
	// ErrCorrupt marks a stored value that is not a valid task collection.
	ErrCorrupt = errors.New("corrupt task collection")
	// ErrConflict means the stored collection changed since it was read.
	ErrConflict = errors.New("task collection changed concurrently")
)

// Version identifies a persisted blob. The zero value means nothing is stored.
type Version string

// Snapshot is a decoded collection plus the version it was read at.
type Snapshot struct {
	Tasks   []model.Task
	Version Version
}

const collectionSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "title", "isDone"],
    "properties": {
      "id": {"type": "integer", "maximum": 9007199254740991},
      "title": {"type": "string", "minLength": 1},
      "isDone": {"type": "boolean"}
    }
  }
}`

var schema = jsonschema.MustCompileString("collection.schema.json", collectionSchema)

// Encode serializes tasks as a compact JSON array. nil encodes as [].
func Encode(tasks []model.Task) (string, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	b, err := json.Marshal(tasks)
	if err != nil {
		return "", fmt.Errorf("json marshal: %w", err)
	}
	return string(b), nil
}

// Decode parses and validates a stored blob.
func Decode(blob string) ([]model.Task, error) {
	dec := json.NewDecoder(strings.NewReader(blob))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: json: %v", ErrCorrupt, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after array", ErrCorrupt)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var tasks []model.Task
	if err := json.Unmarshal([]byte(blob), &tasks); err != nil {
		return nil, fmt.Errorf("%w: json unmarshal: %v", ErrCorrupt, err)
	}
	return model.Clone(tasks), nil
}

// Store reads and writes the collection through a kv.Store.
type Store struct {
	kv  kv.Store
	key string
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used to name corrupt-data backups.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(store kv.Store, key string, opts ...Option) *Store {
	if key == "" {
		key = DefaultKey
	}
	s := &Store{kv: store, key: key, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key is the key the collection is stored under.
func (s *Store) Key() string { return s.key }

// Load reads the collection. A missing or empty value is an empty collection.
//
// A value that fails to decode is copied to a backup key first. The returned
// error wraps ErrCorrupt, and the returned Snapshot is empty but carries the
// corrupt blob's Version so the next Save replaces it.
func (s *Store) Load(ctx context.Context) (Snapshot, error) {
	blob, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return Snapshot{Tasks: []model.Task{}}, fmt.Errorf("read %s: %w", s.key, err)
	}
	if !ok || blob == "" {
		return Snapshot{Tasks: []model.Task{}}, nil
	}

	tasks, err := Decode(blob)
	if err != nil {
		backup := BackupKey(s.key, s.now())
		if berr := s.kv.Set(ctx, backup, blob); berr != nil {
			return Snapshot{Tasks: []model.Task{}, Version: Version(blob)}, errors.Join(
				fmt.Errorf("decode %s: %w", s.key, err),
				fmt.Errorf("backup to %s: %w", backup, berr),
			)
		}
		return Snapshot{Tasks: []model.Task{}, Version: Version(blob)},
			fmt.Errorf("decode %s (backed up to %s): %w", s.key, backup, err)
	}
	return Snapshot{Tasks: tasks, Version: Version(blob)}, nil
}

// Save writes tasks if the stored blob still matches expect and returns the
// new version. A mismatch yields ErrConflict and writes nothing.
func (s *Store) Save(ctx context.Context, tasks []model.Task, expect Version) (Version, error) {
	blob, err := Encode(tasks)
	if err != nil {
		return expect, err
	}
	swapped, err := s.kv.CompareAndSwap(ctx, s.key, string(expect), blob)
	if err != nil {
		return expect, fmt.Errorf("write %s: %w", s.key, err)
	}
	if !swapped {
		return expect, fmt.Errorf("write %s: %w", s.key, ErrConflict)
	}
	return Version(blob), nil
}

// BackupKey names the key a corrupt value is preserved under.
func BackupKey(key string, at time.Time) string {
	return fmt.Sprintf("%s.corrupt-%d", key, at.UnixMilli())
}

// Pretty re-indents a blob for display; invalid input is returned unchanged.
func Pretty(blob string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(blob), "", "  "); err != nil {
		return blob
	}
	return buf.String()
}
