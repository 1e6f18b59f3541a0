// Package storage persists saved snacks.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/snacksmith/backend/internal/domain"
)

// MemoryRepository implements domain.SnackRepository in process memory
type MemoryRepository struct {
	mu     sync.RWMutex
	snacks map[string]domain.Snack
}

// Ensure MemoryRepository implements domain.SnackRepository
var _ domain.SnackRepository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{snacks: make(map[string]domain.Snack)}
}

// Save inserts or replaces a snack by ID
func (r *MemoryRepository) Save(ctx context.Context, snack *domain.Snack) error {
	if snack == nil || snack.ID == "" {
		return domain.ErrInvalidRequest
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snacks[snack.ID] = snack.Clone()
	return nil
}

// Get returns a copy of the snack stored under id
func (r *MemoryRepository) Get(ctx context.Context, id string) (*domain.Snack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.snacks[id]
	if !ok {
		return nil, domain.ErrSnackNotFound
	}
	out := s.Clone()
	return &out, nil
}

// List returns snacks matching filter, most recently updated first
func (r *MemoryRepository) List(ctx context.Context, filter domain.SnackFilter) ([]*domain.Snack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Snack
	for _, s := range r.snacks {
		if !filter.Matches(&s) {
			continue
		}
		c := s.Clone()
		out = append(out, &c)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Delete removes a snack
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.snacks[id]; !ok {
		return domain.ErrSnackNotFound
	}
	delete(r.snacks, id)
	return nil
}
