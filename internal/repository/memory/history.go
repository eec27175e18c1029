package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/repository"
)

// TicketHistoryRepository appends audit entries per ticket.
type TicketHistoryRepository struct {
	mu      sync.RWMutex
	entries map[string][]domain.TicketHistory
}

func NewTicketHistoryRepository() *TicketHistoryRepository {
	return &TicketHistoryRepository{entries: map[string][]domain.TicketHistory{}}
}

var _ repository.TicketHistoryRepository = (*TicketHistoryRepository)(nil)

func (r *TicketHistoryRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[history.TicketID] = append(r.entries[history.TicketID], *history)
	return nil
}

func (r *TicketHistoryRepository) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := append([]domain.TicketHistory{}, r.entries[ticketID]...)
	return page(entries, limit, offset), nil
}
