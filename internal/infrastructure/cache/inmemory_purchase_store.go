package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/crm/dashboard/internal/domain/purchase"
	"github.com/google/uuid"
)

// InMemoryPurchaseStore implements purchase.Repository in process memory.
// State is lost on restart and is not shared across instances.
type InMemoryPurchaseStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*purchase.Purchase
}

// NewInMemoryPurchaseStore creates an empty store
func NewInMemoryPurchaseStore() *InMemoryPurchaseStore {
	return &InMemoryPurchaseStore{items: make(map[uuid.UUID]*purchase.Purchase)}
}

// Save inserts or replaces p
func (s *InMemoryPurchaseStore) Save(_ context.Context, p *purchase.Purchase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = p.Clone()
	return nil
}

// Update applies fn to a copy under the write lock and stores it when changed
func (s *InMemoryPurchaseStore) Update(_ context.Context, id uuid.UUID, fn purchase.Mutation) (*purchase.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[id]
	if !ok {
		return nil, purchase.ErrNotFound
	}
	p := current.Clone()
	changed, err := fn(p)
	if err != nil {
		return nil, err
	}
	if changed {
		s.items[id] = p.Clone()
	}
	return p, nil
}

// FindByID returns a copy of the stored purchase
func (s *InMemoryPurchaseStore) FindByID(_ context.Context, id uuid.UUID) (*purchase.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return nil, purchase.ErrNotFound
	}
	return p.Clone(), nil
}

// FindAll returns matching purchases newest first
func (s *InMemoryPurchaseStore) FindAll(_ context.Context, filter purchase.Filter) ([]*purchase.Purchase, error) {
	s.mu.RLock()
	out := make([]*purchase.Purchase, 0, len(s.items))
	for _, p := range s.items {
		if filter.Matches(p) {
			out = append(out, p.Clone())
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Ping always succeeds
func (s *InMemoryPurchaseStore) Ping(context.Context) error {
	return nil
}

func sortNewestFirst(items []*purchase.Purchase) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].Number > items[j].Number
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

var _ purchase.Repository = (*InMemoryPurchaseStore)(nil)
