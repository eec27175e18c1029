package repository

import (
	"context"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/persistence"
)

type guestRepository struct {
	db persistence.DB
}

// NewGuestRepository returns a Postgres-backed implementation.
func NewGuestRepository(db persistence.DB) GuestRepository {
	return &guestRepository{db: db}
}

// FindByContact returns the most recent stay for a contact.
func (r *guestRepository) FindByContact(ctx context.Context, contactID string) (*domain.Guest, error) {
	const query = `
        SELECT id, name, contact_id, room_number, checked_out_at
        FROM guests WHERE contact_id=$1
        ORDER BY checked_out_at DESC NULLS FIRST LIMIT 1`
	return r.fetch(ctx, query, contactID)
}

// FindByRoom returns the guest currently in a room.
func (r *guestRepository) FindByRoom(ctx context.Context, roomNumber string) (*domain.Guest, error) {
	const query = `
        SELECT id, name, contact_id, room_number, checked_out_at
        FROM guests WHERE room_number=$1 AND checked_out_at IS NULL
        LIMIT 1`
	return r.fetch(ctx, query, roomNumber)
}

func (r *guestRepository) fetch(ctx context.Context, query, arg string) (*domain.Guest, error) {
	var guest domain.Guest
	if err := persistence.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, arg).Scan(
		&guest.ID,
		&guest.Name,
		&guest.ContactID,
		&guest.RoomNumber,
		&guest.CheckedOutAt,
	); err != nil {
		return nil, mapError(err, "guest", arg)
	}
	return &guest, nil
}
