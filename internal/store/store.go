// internal/store/store.go
//
// Package store implements the cached resource collections the client works
// from. One generic Store carries the shape every resource shares: a cached
// slice, a loading flag, a fetch guard, merge-by-id helpers, and CRUD that
// talks through the backend provider. Concrete stores wrap it with their
// entity's defaults and side effects.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/kor4soft/teamsync/internal/backend"
	"github.com/kor4soft/teamsync/internal/session"
)

var ErrNotOwner = errors.New("only the creator can delete this")

// Item is anything a Store can cache.
type Item interface {
	GetID() string
	GetCreatedBy() string
}

// Config fixes a Store to one table and one query shape.
type Config struct {
	Table string
	// Query produces the active filter set for a fetch; nil means everything
	// ordered by created_at descending.
	Query func() backend.Query
	// Append puts authoritative rows from Create at the end instead of the
	// front (chat messages read oldest-first).
	Append bool
	// CreatorColumn names the column stamped with the acting user on
	// Create; defaults to created_by.
	CreatorColumn string
	// TouchUpdatedAt refreshes updated_at on every Update. Leave unset for
	// tables without the column or the server rejects the patch.
	TouchUpdatedAt bool
}

type Store[T Item] struct {
	provider backend.Provider
	session  *session.Session
	cfg      Config
	guard    Guard

	mu       sync.RWMutex
	items    []T
	loading  bool
	selected string
}

func New[T Item](provider backend.Provider, sess *session.Session, cfg Config) *Store[T] {
	if cfg.Query == nil {
		cfg.Query = func() backend.Query {
			return backend.Query{OrderBy: "created_at", Desc: true}
		}
	}
	if cfg.CreatorColumn == "" {
		cfg.CreatorColumn = "created_by"
	}
	return &Store[T]{provider: provider, session: sess, cfg: cfg}
}

// ============================================
// Reads
// ============================================

// Fetch loads the collection unless a fetch already happened (or is in
// flight) and force is unset. On error the previous collection is kept.
func (s *Store[T]) Fetch(ctx context.Context, force bool) error {
	return s.FetchWith(ctx, force, func(ctx context.Context) ([]T, error) {
		rows, err := s.provider.Select(ctx, s.cfg.Table, s.cfg.Query())
		if err != nil {
			return nil, err
		}
		return backend.DecodeRows[T](rows)
	})
}

// FetchWith runs the guard and loading protocol around a custom loader, for
// stores whose collection is not a single query.
func (s *Store[T]) FetchWith(ctx context.Context, force bool, load func(context.Context) ([]T, error)) error {
	if !s.guard.Begin(force) {
		return nil
	}
	defer s.guard.Done()

	s.setLoading(true)
	defer s.setLoading(false)

	items, err := load(ctx)
	if err != nil {
		return err
	}
	s.Replace(items)
	return nil
}

// Items returns a copy of the cached collection.
func (s *Store[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the cached item with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.GetID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Invalidate forces the next Fetch to hit the provider.
func (s *Store[T]) Invalidate() { s.guard.Invalidate() }

// ============================================
// Selection
// ============================================

// Select marks an item as current; an unknown id clears the selection.
func (s *Store[T]) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.GetID() == id {
			s.selected = id
			return
		}
	}
	s.selected = ""
}

// Selected returns the current item, if any.
func (s *Store[T]) Selected() (T, bool) {
	s.mu.RLock()
	id := s.selected
	s.mu.RUnlock()
	if id == "" {
		var zero T
		return zero, false
	}
	return s.Get(id)
}

// ============================================
// Mutations
// ============================================

// Create inserts a row stamped with the acting user and merges the
// authoritative result into the cache.
func (s *Store[T]) Create(ctx context.Context, row backend.Row) (T, error) {
	var zero T
	if err := s.session.Require(); err != nil {
		return zero, err
	}
	if _, ok := row[s.cfg.CreatorColumn]; !ok {
		row[s.cfg.CreatorColumn] = s.session.UserID()
	}

	result, err := s.provider.Insert(ctx, s.cfg.Table, row)
	if err != nil {
		return zero, err
	}
	item, err := backend.DecodeRow[T](result)
	if err != nil {
		return zero, err
	}
	s.MergeInsert(item)
	return item, nil
}

// Update applies a partial patch and replaces the cached item. Tables
// configured with TouchUpdatedAt get a refreshed updated_at.
func (s *Store[T]) Update(ctx context.Context, id string, patch backend.Row) (T, error) {
	var zero T
	if err := s.session.Require(); err != nil {
		return zero, err
	}
	if _, ok := patch["updated_at"]; s.cfg.TouchUpdatedAt && !ok {
		patch["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	result, err := s.provider.Update(ctx, s.cfg.Table, id, patch)
	if err != nil {
		return zero, err
	}
	item, err := backend.DecodeRow[T](result)
	if err != nil {
		return zero, err
	}
	s.MergeUpdate(item)
	return item, nil
}

// Delete removes an item. Only its creator may: the check runs against the
// cache before any provider call, and the server enforces it again.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	if err := s.session.Require(); err != nil {
		return err
	}
	if it, ok := s.Get(id); ok && it.GetCreatedBy() != s.session.UserID() {
		return ErrNotOwner
	}

	if err := s.provider.Delete(ctx, s.cfg.Table, id); err != nil {
		return err
	}
	s.MergeRemove(id)
	return nil
}

// ============================================
// Merge helpers (idempotent)
// ============================================

// Replace swaps the whole collection, keeping a still-valid selection.
func (s *Store[T]) Replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	if s.selected != "" {
		found := false
		for _, it := range items {
			if it.GetID() == s.selected {
				found = true
				break
			}
		}
		if !found {
			s.selected = ""
		}
	}
}

// MergeInsert adds an item unless its id is already cached.
func (s *Store[T]) MergeInsert(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.GetID() == item.GetID() {
			return
		}
	}
	if s.cfg.Append {
		s.items = append(s.items, item)
	} else {
		s.items = append([]T{item}, s.items...)
	}
}

// MergeUpdate replaces the cached item with the same id; unknown ids are
// ignored.
func (s *Store[T]) MergeUpdate(item T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.GetID() == item.GetID() {
			s.items[i] = item
			return
		}
	}
}

// MergeRemove drops the item with the given id, clearing a matching
// selection. Removing an absent id is a no-op.
func (s *Store[T]) MergeRemove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, it := range s.items {
		if it.GetID() == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	if s.selected == id {
		s.selected = ""
	}
}

func (s *Store[T]) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Session exposes the session for concrete stores layered on top.
func (s *Store[T]) Session() *session.Session { return s.session }

// Provider exposes the provider for concrete stores layered on top.
func (s *Store[T]) Provider() backend.Provider { return s.provider }

// Table returns the backing table name.
func (s *Store[T]) Table() string { return s.cfg.Table }
