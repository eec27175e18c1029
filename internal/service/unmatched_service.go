package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/persistence"
	"github.com/spec-kit/service-desk/internal/repository"
)

// UnmatchedService lets staff triage messages the classifier could not route.
type UnmatchedService struct {
	items   repository.UnmatchedRepository
	tickets *TicketService
	tx      persistence.Transactor
	logger  *zap.Logger
	now     func() time.Time
	locks   *keyedLock
}

// UnmatchedDependencies bundles collaborators for the unmatched service.
type UnmatchedDependencies struct {
	UnmatchedRepo repository.UnmatchedRepository
	Tickets       *TicketService
	Transactor    persistence.Transactor
	Logger        *zap.Logger
	Now           func() time.Time
}

// ResolveUnmatchedInput carries the staff decision for an unmatched item.
type ResolveUnmatchedInput struct {
	RequestTypeID int64
	DepartmentID  int64
	Priority      domain.TicketPriority
	ResolvedBy    string
}

// NewUnmatchedService constructs the triage service.
func NewUnmatchedService(deps UnmatchedDependencies) *UnmatchedService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	tx := deps.Transactor
	if tx == nil {
		tx = persistence.NoopTransactor{}
	}
	return &UnmatchedService{
		items:   deps.UnmatchedRepo,
		tickets: deps.Tickets,
		tx:      tx,
		logger:  logger,
		now:     now,
		locks:   newKeyedLock(),
	}
}

// ResolveUnmatched turns a pending item into a ticket. The ticket and the item
// update commit together.
func (s *UnmatchedService) ResolveUnmatched(ctx context.Context, itemID string, input ResolveUnmatchedInput) (*domain.Ticket, error) {
	resolvedBy := strings.TrimSpace(input.ResolvedBy)
	if resolvedBy == "" {
		return nil, domain.Validationf("resolved_by required")
	}

	unlock := s.locks.Lock(itemID)
	defer unlock()

	var (
		ticket *domain.Ticket
		event  events.Event
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		item, err := s.items.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.Pending() {
			return domain.ErrAlreadyResolved
		}

		requestTypeID := input.RequestTypeID
		departmentID := input.DepartmentID
		contactID := item.ContactID
		ticket, event, err = s.tickets.createInTx(ctx, TicketCreateInput{
			RequestTypeID: &requestTypeID,
			DepartmentID:  &departmentID,
			Priority:      input.Priority,
			Source:        domain.TicketSourceChannel,
			Notes:         item.MessageBody,
			ContactID:     &contactID,
			GuestID:       item.GuestID,
		})
		if err != nil {
			return err
		}

		now := s.now()
		ticketID := ticket.ID
		item.Status = domain.UnmatchedStatusResolved
		item.ResolvedTicketID = &ticketID
		item.ResolvedBy = &resolvedBy
		item.ResolvedAt = &now
		return s.items.Update(ctx, item)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("unmatched item resolved",
		zap.String("item_id", itemID),
		zap.String("ticket_id", ticket.ID),
		zap.String("resolved_by", resolvedBy))
	s.tickets.publishEvent(ctx, event)
	return ticket, nil
}

// IgnoreUnmatched closes a pending item without creating a ticket.
func (s *UnmatchedService) IgnoreUnmatched(ctx context.Context, itemID, resolvedBy string) (*domain.UnmatchedItem, error) {
	resolvedBy = strings.TrimSpace(resolvedBy)
	if resolvedBy == "" {
		return nil, domain.Validationf("resolved_by required")
	}

	unlock := s.locks.Lock(itemID)
	defer unlock()

	var ignored *domain.UnmatchedItem
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		item, err := s.items.GetForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.Pending() {
			return domain.ErrAlreadyResolved
		}
		now := s.now()
		item.Status = domain.UnmatchedStatusIgnored
		item.ResolvedBy = &resolvedBy
		item.ResolvedAt = &now
		if err := s.items.Update(ctx, item); err != nil {
			return err
		}
		ignored = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ignored, nil
}

// ListUnmatched pages items, optionally by status.
func (s *UnmatchedService) ListUnmatched(ctx context.Context, status *domain.UnmatchedStatus, limit, offset int) ([]domain.UnmatchedItem, error) {
	return s.items.List(ctx, status, limit, offset)
}

// GetUnmatched loads one item.
func (s *UnmatchedService) GetUnmatched(ctx context.Context, itemID string) (*domain.UnmatchedItem, error) {
	return s.items.GetByID(ctx, itemID)
}
