package domain

import "time"

// Guest is read-only stay data used to enrich tickets.
type Guest struct {
	ID           string
	Name         string
	ContactID    string
	RoomNumber   string
	CheckedOutAt *time.Time
}
