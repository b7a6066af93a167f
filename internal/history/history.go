// Package history keeps the most recent completed generations as a single
// JSON blob in a pluggable key/value backend.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kiranshivaraju/reelgen/internal/cache"
	"github.com/kiranshivaraju/reelgen/pkg/models"
)

// MaxItems is the number of entries retained; older ones are evicted.
const MaxItems = 10

// Backend persists the serialized history under a single key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Store is the bounded, newest-first history. Mutations are serialized
// within the process and each performs exactly one backend write.
type Store struct {
	backend Backend
	key     string
	mu      sync.Mutex
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, key: cache.HistoryKey}
}

// List returns the entries newest first. A blob that does not decode is
// logged and treated as an empty history.
func (s *Store) List(ctx context.Context) ([]models.HistoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

// Get returns the entry with id.
func (s *Store) Get(ctx context.Context, id string) (models.HistoryItem, bool, error) {
	items, err := s.List(ctx)
	if err != nil {
		return models.HistoryItem{}, false, err
	}
	for _, it := range items {
		if it.ID == id {
			return it, true, nil
		}
	}
	return models.HistoryItem{}, false, nil
}

// Record puts item at the front, replacing any entry with the same id, and
// drops whatever falls past MaxItems.
func (s *Store) Record(ctx context.Context, item models.HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	next := make([]models.HistoryItem, 0, min(len(items)+1, MaxItems))
	next = append(next, item)
	for _, it := range items {
		if len(next) == MaxItems {
			break
		}
		if it.ID != item.ID {
			next = append(next, it)
		}
	}
	return s.saveLocked(ctx, next)
}

// Remove deletes the entry with id. Removing an unknown id is a no-op and
// does not write.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.loadLocked(ctx)
	if err != nil {
		return err
	}
	next := make([]models.HistoryItem, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	if len(next) == len(items) {
		return nil
	}
	return s.saveLocked(ctx, next)
}

// Clear deletes the whole history.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Ping checks the backend when it supports a health check.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.backend.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) loadLocked(ctx context.Context) ([]models.HistoryItem, error) {
	raw, found, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !found || len(raw) == 0 {
		return nil, nil
	}
	var items []models.HistoryItem
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("discarding unreadable history", "key", s.key, "error", err)
		return nil, nil
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	return items, nil
}

func (s *Store) saveLocked(ctx context.Context, items []models.HistoryItem) error {
	if items == nil {
		items = []models.HistoryItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.backend.Set(ctx, s.key, raw); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
