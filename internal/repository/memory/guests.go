package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/repository"
)

// GuestRepository is a read-mostly guest directory.
type GuestRepository struct {
	mu     sync.RWMutex
	guests []domain.Guest
}

func NewGuestRepository(guests ...domain.Guest) *GuestRepository {
	return &GuestRepository{guests: guests}
}

var _ repository.GuestRepository = (*GuestRepository)(nil)

// Add registers a guest stay.
func (r *GuestRepository) Add(g domain.Guest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guests = append(r.guests, g)
}

func (r *GuestRepository) FindByContact(_ context.Context, contactID string) (*domain.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.guests) - 1; i >= 0; i-- {
		if r.guests[i].ContactID == contactID {
			g := r.guests[i]
			return &g, nil
		}
	}
	return nil, fmt.Errorf("guest %s: %w", contactID, domain.ErrNotFound)
}

func (r *GuestRepository) FindByRoom(_ context.Context, roomNumber string) (*domain.Guest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.guests) - 1; i >= 0; i-- {
		if r.guests[i].RoomNumber == roomNumber && r.guests[i].CheckedOutAt == nil {
			g := r.guests[i]
			return &g, nil
		}
	}
	return nil, fmt.Errorf("guest in room %s: %w", roomNumber, domain.ErrNotFound)
}
