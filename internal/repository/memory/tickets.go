// Package memory holds in-process implementations of the repository interfaces.
// They back development runs without Postgres and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/repository"
)

// TicketRepository stores tickets in a map.
type TicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

// NewTicketRepository returns an empty store.
func NewTicketRepository() *TicketRepository {
	return &TicketRepository{tickets: map[string]*domain.Ticket{}}
}

var _ repository.TicketRepository = (*TicketRepository)(nil)

func (r *TicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return fmt.Errorf("ticket %s already exists: %w", ticket.ID, domain.ErrValidation)
	}
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *TicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; !exists {
		return fmt.Errorf("ticket %s: %w", ticket.ID, domain.ErrNotFound)
	}
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *TicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	return t.Clone(), nil
}

// GetForUpdate is GetByID; callers serialize per ticket in process.
func (r *TicketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *TicketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	matched := []domain.Ticket{}
	for _, t := range r.tickets {
		if matchesFilter(t, filter) {
			matched = append(matched, *t.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return page(matched, filter.Limit, filter.Offset), nil
}

func (r *TicketRepository) ListOpenAfter(_ context.Context, afterID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 200
	}
	r.mu.RLock()
	open := []domain.Ticket{}
	for id, t := range r.tickets {
		if t.Status.IsOpen() && id > afterID {
			open = append(open, *t.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(open, func(i, j int) bool { return open[i].ID < open[j].ID })
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (r *TicketRepository) UpdateBreachFlags(_ context.Context, id string, responseBreached, resolutionBreached bool, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	t.ResponseBreached = responseBreached
	t.ResolutionBreached = resolutionBreached
	t.UpdatedAt = updatedAt
	return nil
}

func matchesFilter(t *domain.Ticket, f repository.TicketFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DepartmentID != nil && (t.DepartmentID == nil || *t.DepartmentID != *f.DepartmentID) {
		return false
	}
	if f.RequestTypeID != nil && (t.RequestTypeID == nil || *t.RequestTypeID != *f.RequestTypeID) {
		return false
	}
	if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
		return false
	}
	if f.ContactID != nil && (t.ContactID == nil || *t.ContactID != *f.ContactID) {
		return false
	}
	if f.Breached != nil && t.SLABreached() != *f.Breached {
		return false
	}
	return true
}

func page[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
