package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/repository"
)

// UnmatchedRepository stores unmatched items in a map.
type UnmatchedRepository struct {
	mu    sync.RWMutex
	items map[string]domain.UnmatchedItem
}

func NewUnmatchedRepository() *UnmatchedRepository {
	return &UnmatchedRepository{items: map[string]domain.UnmatchedItem{}}
}

var _ repository.UnmatchedRepository = (*UnmatchedRepository)(nil)

func (r *UnmatchedRepository) Create(_ context.Context, item *domain.UnmatchedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("unmatched item %s already exists: %w", item.ID, domain.ErrValidation)
	}
	r.items[item.ID] = *item
	return nil
}

func (r *UnmatchedRepository) Update(_ context.Context, item *domain.UnmatchedItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("unmatched item %s: %w", item.ID, domain.ErrNotFound)
	}
	stored.Status = item.Status
	stored.ResolvedTicketID = item.ResolvedTicketID
	stored.ResolvedBy = item.ResolvedBy
	stored.ResolvedAt = item.ResolvedAt
	r.items[item.ID] = stored
	return nil
}

func (r *UnmatchedRepository) GetByID(_ context.Context, id string) (*domain.UnmatchedItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("unmatched item %s: %w", id, domain.ErrNotFound)
	}
	return &item, nil
}

func (r *UnmatchedRepository) GetForUpdate(ctx context.Context, id string) (*domain.UnmatchedItem, error) {
	return r.GetByID(ctx, id)
}

func (r *UnmatchedRepository) List(_ context.Context, status *domain.UnmatchedStatus, limit, offset int) ([]domain.UnmatchedItem, error) {
	r.mu.RLock()
	out := []domain.UnmatchedItem{}
	for _, item := range r.items {
		if status == nil || item.Status == *status {
			out = append(out, item)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return page(out, limit, offset), nil
}
