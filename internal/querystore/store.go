// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package querystore keeps the ordered list of saved queries and mirrors it
// to a single named persistence slot.
//
// The whole collection is serialized as one JSON array and rewritten on
// every save. There is no versioning: a slot that fails to parse is treated
// as absent and the store starts empty.
package querystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/slr-assistant/pkg/types"
)

// SlotName is the name of the persistence slot holding the collection.
const SlotName = "savedQueries"

// ErrSlotEmpty is returned by a Backend when the slot has never been
// written or has been removed.
var ErrSlotEmpty = errors.New("slot is empty")

// Backend persists one opaque value under the store's slot.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Store(ctx context.Context, value []byte) error
	Remove(ctx context.Context) error
	Close() error
}

// Store is the in-memory list of saved queries backed by a persistence slot.
// Consumers receive the Store explicitly; there is no package-level state.
type Store struct {
	mu      sync.Mutex
	backend Backend
	queries []types.SavedQuery
	logger  *zap.Logger
}

// Open loads the collection from backend. An absent slot, a read failure,
// or a value that does not parse all yield an empty store; only the read
// failure and parse failure are logged.
func Open(ctx context.Context, backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{backend: backend, logger: logger}

	data, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrSlotEmpty):
		return s
	case err != nil:
		logger.Warn("loading saved queries failed, starting empty", zap.Error(err))
		return s
	}

	var queries []types.SavedQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		logger.Warn("saved queries are unreadable, starting empty", zap.Error(err))
		return s
	}
	s.queries = queries
	logger.Debug("loaded saved queries", zap.Int("count", len(queries)))
	return s
}

// List returns the saved queries in insertion order. The returned slice is
// a copy; the queries themselves must be treated as read-only.
func (s *Store) List() []types.SavedQuery {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.SavedQuery, len(s.queries))
	copy(out, s.queries)
	return out
}

// Find returns the first saved query with the given id.
func (s *Store) Find(id string) (types.SavedQuery, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, q := range s.queries {
		if q.ID == id {
			return q, true
		}
	}
	return types.SavedQuery{}, false
}

// Save appends q and rewrites the persisted collection. Ids are not checked
// for collisions: saving two queries with the same id keeps both. When the
// write fails the in-memory list is left unchanged.
func (s *Store) Save(ctx context.Context, q types.SavedQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]types.SavedQuery, len(s.queries), len(s.queries)+1)
	copy(updated, s.queries)
	updated = append(updated, q)

	data, err := json.Marshal(updated)
	if err != nil {
		return fmt.Errorf("encoding saved queries: %w", err)
	}
	if err := s.backend.Store(ctx, data); err != nil {
		return fmt.Errorf("persisting saved queries: %w", err)
	}

	s.queries = updated
	s.logger.Info("saved query", zap.String("id", q.ID), zap.String("name", q.Name), zap.Int("total", len(updated)))
	return nil
}

// Clear empties the list and removes the persisted slot.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Remove(ctx); err != nil {
		return fmt.Errorf("clearing saved queries: %w", err)
	}
	s.queries = nil
	s.logger.Info("cleared saved queries")
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
