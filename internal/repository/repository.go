package repository

import (
	"context"
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

// TicketFilter captures ticket listing parameters.
type TicketFilter struct {
	Statuses      []domain.TicketStatus
	DepartmentID  *int64
	RequestTypeID *int64
	AssigneeID    *string
	ContactID     *string
	Breached      *bool
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence. Tickets are never deleted.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	// GetForUpdate loads the ticket and locks its row for the surrounding transaction.
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListOpenAfter pages open tickets in id order, starting after afterID.
	ListOpenAfter(ctx context.Context, afterID string, limit int) ([]domain.Ticket, error)
	UpdateBreachFlags(ctx context.Context, id string, responseBreached, resolutionBreached bool, updatedAt time.Time) error
}

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error)
}

// UnmatchedRepository stores unmatched inbound messages.
type UnmatchedRepository interface {
	Create(ctx context.Context, item *domain.UnmatchedItem) error
	Update(ctx context.Context, item *domain.UnmatchedItem) error
	GetByID(ctx context.Context, id string) (*domain.UnmatchedItem, error)
	GetForUpdate(ctx context.Context, id string) (*domain.UnmatchedItem, error)
	List(ctx context.Context, status *domain.UnmatchedStatus, limit, offset int) ([]domain.UnmatchedItem, error)
}

// GuestRepository reads guest stay data. Missing guests yield domain.ErrNotFound.
type GuestRepository interface {
	FindByContact(ctx context.Context, contactID string) (*domain.Guest, error)
	FindByRoom(ctx context.Context, roomNumber string) (*domain.Guest, error)
}

// FeedbackRepository stores completed feedback surveys.
type FeedbackRepository interface {
	Create(ctx context.Context, submission *domain.FeedbackSubmission) error
	ListByContact(ctx context.Context, contactID string) ([]domain.FeedbackSubmission, error)
}

// ConversationStore keeps one conversation state per contact.
type ConversationStore interface {
	// Get returns the stored state, or a fresh idle state when none exists.
	Get(ctx context.Context, contactID string) (*domain.ConversationState, error)
	Save(ctx context.Context, state *domain.ConversationState) error
}

func normalizeLimit(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
