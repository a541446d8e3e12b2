// Package tasks keeps the in-memory task list in step with its persisted copy.
//
// A Store holds two views: the authoritative list, which always mirrors the
// last successfully persisted collection, and the visible list, which is the
// authoritative list filtered by the current search text. Mutations are
// written first and applied to memory only once the write succeeds, so a
// failed write leaves both views exactly as they were.
package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store/jsonstore"
)

// ErrEmptyTitle is returned by Add for a blank title. Nothing is written.
var ErrEmptyTitle = errors.New("empty title")

// Persister loads and saves the whole collection.
type Persister interface {
	Load(ctx context.Context) (jsonstore.Snapshot, error)
	Save(ctx context.Context, tasks []model.Task, expect jsonstore.Version) (jsonstore.Version, error)
}

// Store is safe for concurrent use. Every operation runs under one lock, so
// mutations are applied one at a time against the latest state.
type Store struct {
	persist Persister
	logger  *log.Logger
	now     func() time.Time

	mu      sync.Mutex
	all     []model.Task
	visible []model.Task
	query   string
	version jsonstore.Version
	loaded  bool
}

type Option func(*Store)

// WithLogger sets where failures are reported.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides the clock new ids are taken from.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(p Persister, opts ...Option) *Store {
	s := &Store{
		persist: p,
		logger:  log.New(io.Discard),
		now:     time.Now,
		all:     []model.Task{},
		visible: []model.Task{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces both views with the persisted collection. On failure the
// error is logged and returned and the views keep their previous value.
// The store counts as loaded either way.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = true
	snap, err := s.persist.Load(ctx)
	if err != nil {
		if errors.Is(err, jsonstore.ErrCorrupt) {
			// Adopt the corrupt blob's version so the next save replaces it.
			s.version = snap.Version
			s.logger.Error("stored tasks are corrupt, starting empty", "err", err)
		} else {
			s.logger.Error("load tasks", "err", err)
		}
		return err
	}
	s.apply(snap.Tasks, snap.Version)
	s.logger.Debug("loaded tasks", "count", len(s.all))
	return nil
}

// Add appends a new pending task with a fresh id and persists the collection.
func (s *Store) Add(ctx context.Context, title string) (model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.Task{}, ErrEmptyTitle
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := model.Task{ID: s.nextID(), Title: title}
	next := append(model.Clone(s.all), task)
	if err := s.commit(ctx, "add", next); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

// Delete removes the task with id. An unknown id changes nothing.
func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := model.Without(s.all, id)
	if !ok {
		return nil
	}
	return s.commit(ctx, "delete", next)
}

// ToggleDone flips the completion flag of the task with id. An unknown id
// changes nothing.
func (s *Store) ToggleDone(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := model.Toggled(s.all, id)
	if !ok {
		return nil
	}
	return s.commit(ctx, "toggle", next)
}

// Search sets the search text and returns the new visible list. It never
// touches persistence.
func (s *Store) Search(text string) []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = text
	s.visible = model.Filter(s.all, s.query)
	return model.Clone(s.visible)
}

// All returns the authoritative list in storage order.
func (s *Store) All() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.all)
}

// Visible returns the search-filtered list in storage order.
func (s *Store) Visible() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Clone(s.visible)
}

// Display returns the visible list newest first, the order it is shown in.
func (s *Store) Display() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Reversed(s.visible)
}

func (s *Store) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Stats counts done and pending tasks across the whole collection.
func (s *Store) Stats() (done, pending int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.Stats(s.all)
}

// commit persists next and, only if that succeeds, makes it current.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, op string, next []model.Task) error {
	v, err := s.persist.Save(ctx, next, s.version)
	if err != nil {
		if errors.Is(err, jsonstore.ErrConflict) {
			s.logger.Warn("tasks changed elsewhere, reload to continue", "op", op, "err", err)
		} else {
			s.logger.Error("save tasks", "op", op, "err", err)
		}
		return err
	}
	s.apply(next, v)
	s.logger.Debug("saved tasks", "op", op, "count", len(next))
	return nil
}

func (s *Store) apply(all []model.Task, v jsonstore.Version) {
	s.all = model.Clone(all)
	s.visible = model.Filter(s.all, s.query)
	s.version = v
}

// nextID is the current time in milliseconds, bumped past the newest id so
// two adds within the same millisecond still get distinct ids. When the bump
// would pass model.MaxID the lowest unused positive id is taken instead.
func (s *Store) nextID() int64 {
	id := s.now().UnixMilli()
	for _, t := range s.all {
		if t.ID >= id {
			if t.ID >= model.MaxID {
				return s.lowestFreeID()
			}
			id = t.ID + 1
		}
	}
	return id
}

func (s *Store) lowestFreeID() int64 {
	used := make(map[int64]bool, len(s.all))
	for _, t := range s.all {
		used[t.ID] = true
	}
	id := int64(1)
	for used[id] {
		id++
	}
	return id
}
