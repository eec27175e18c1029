package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/classifier"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/persistence"
	"github.com/spec-kit/service-desk/internal/repository"
	"github.com/spec-kit/service-desk/internal/sla"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	guests     repository.GuestRepository
	tx         persistence.Transactor
	catalog    *catalog.Provider
	resolver   *sla.Resolver
	dispatcher events.Dispatcher
	logger     *zap.Logger
	tracer     trace.Tracer
	now        func() time.Time
	batchSize  int
	locks      *keyedLock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	GuestRepo   repository.GuestRepository
	Transactor  persistence.Transactor
	Catalog     *catalog.Provider
	Resolver    *sla.Resolver
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
	// SweepBatchSize bounds how many tickets one sweep page loads.
	SweepBatchSize int
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	RequestTypeID *int64
	DepartmentID  *int64
	Priority      domain.TicketPriority
	Source        domain.TicketSource
	Notes         string
	ContactID     *string
	GuestID       *string
	RoomNumber    *string
}

// TicketListFilter describes ticket listing filters.
type TicketListFilter struct {
	Statuses      []domain.TicketStatus
	DepartmentID  *int64
	RequestTypeID *int64
	AssigneeID    *string
	ContactID     *string
	Breached      *bool
	Limit         int
	Offset        int
}

// SweepReport summarizes one breach sweep.
type SweepReport struct {
	Checked       int `json:"checked"`
	Updated       int `json:"updated"`
	NewlyBreached int `json:"newly_breached"`
	Failed        int `json:"failed"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
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
	resolver := deps.Resolver
	if resolver == nil {
		resolver = sla.NewResolver(nil)
	}
	batch := deps.SweepBatchSize
	if batch <= 0 {
		batch = 200
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		guests:     deps.GuestRepo,
		tx:         tx,
		catalog:    deps.Catalog,
		resolver:   resolver,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		tracer:     otel.Tracer("service-desk.tickets"),
		now:        now,
		batchSize:  batch,
		locks:      newKeyedLock(),
	}
}

// CreateTicket resolves the SLA policy, stamps both deadlines and stores a
// pending ticket.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket.create")
	defer span.End()

	var (
		ticket *domain.Ticket
		event  events.Event
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		ticket, event, err = s.createInTx(ctx, input)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ticket.id", ticket.ID),
		attribute.String("ticket.priority", string(ticket.Priority)),
		attribute.String("sla.policy_source", string(ticket.PolicySource)),
	)
	s.publishEvent(ctx, event)
	return ticket, nil
}

// createInTx stores the ticket and its history entry using the transaction in
// ctx. The returned event must be published by the caller after commit.
func (s *TicketService) createInTx(ctx context.Context, input TicketCreateInput) (*domain.Ticket, events.Event, error) {
	snapshot := s.snapshot()

	priority := domain.TicketPriorityNormal
	if input.Priority != "" {
		parsed, ok := domain.ParsePriority(string(input.Priority))
		if !ok {
			return nil, events.Event{}, domain.Validationf("unknown priority %q", input.Priority)
		}
		priority = parsed
	}
	source := input.Source
	if source == "" {
		source = domain.TicketSourceManual
	}

	departmentID := input.DepartmentID
	if input.RequestTypeID != nil {
		if _, ok := snapshot.RequestType(*input.RequestTypeID); !ok {
			return nil, events.Event{}, domain.Validationf("unknown request type %d", *input.RequestTypeID)
		}
		if departmentID == nil {
			departmentID = classifier.InferDepartment(snapshot, *input.RequestTypeID)
		}
	}
	if departmentID != nil {
		dept, ok := snapshot.Department(*departmentID)
		if !ok {
			return nil, events.Event{}, domain.Validationf("unknown department %d", *departmentID)
		}
		if !dept.IsActive {
			return nil, events.Event{}, domain.Validationf("department %d inactive", *departmentID)
		}
	}

	policy, policySource, err := s.resolver.Resolve(snapshot, departmentID, input.RequestTypeID, priority)
	if err != nil {
		s.logger.Error("sla policy resolution failed",
			zap.String("priority", string(priority)),
			zap.Error(err))
		return nil, events.Event{}, err
	}

	now := s.now()
	responseDueAt, dueAt := sla.Deadlines(policy, now)
	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		ExternalKey:   generateTicketKey(),
		RequestTypeID: input.RequestTypeID,
		DepartmentID:  departmentID,
		Priority:      priority,
		Status:        domain.TicketStatusPending,
		Source:        source,
		GuestID:       input.GuestID,
		ContactID:     input.ContactID,
		RoomNumber:    input.RoomNumber,
		Notes:         strings.TrimSpace(input.Notes),
		PolicySource:  policySource,
		CreatedAt:     now,
		UpdatedAt:     now,
		DueAt:         dueAt,
		ResponseDueAt: responseDueAt,
	}
	s.enrichGuest(ctx, ticket)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, events.Event{}, err
	}
	if err := s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:   ticket.ID,
		ChangeType: domain.ChangeTypeCreated,
		NewValue: map[string]any{
			"status":        ticket.Status,
			"priority":      ticket.Priority,
			"policy_source": ticket.PolicySource,
		},
		CreatedAt: now,
	}); err != nil {
		return nil, events.Event{}, err
	}

	event := events.Event{
		Type:      events.EventTicketCreated,
		TicketID:  ticket.ID,
		Timestamp: now,
		Payload: events.TicketCreatedPayload{
			Ticket:        events.NewTicketRef(ticket),
			Source:        ticket.Source,
			DueAt:         ticket.DueAt,
			ResponseDueAt: ticket.ResponseDueAt,
		},
	}
	return ticket, event, nil
}

// enrichGuest fills guest fields from the stay directory. Lookups are best effort.
func (s *TicketService) enrichGuest(ctx context.Context, t *domain.Ticket) {
	if s.guests == nil || t.GuestID != nil {
		return
	}
	var (
		guest *domain.Guest
		err   error
	)
	switch {
	case t.ContactID != nil:
		guest, err = s.guests.FindByContact(ctx, *t.ContactID)
	case t.RoomNumber != nil:
		guest, err = s.guests.FindByRoom(ctx, *t.RoomNumber)
	default:
		return
	}
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("guest lookup failed", zap.Error(err))
		}
		return
	}
	id := guest.ID
	t.GuestID = &id
	if t.RoomNumber == nil && guest.RoomNumber != "" {
		room := guest.RoomNumber
		t.RoomNumber = &room
	}
	if t.ContactID == nil && guest.ContactID != "" {
		contact := guest.ContactID
		t.ContactID = &contact
	}
}

// AssignAndAccept assigns the ticket and accepts it. The first acceptance time
// is kept when an escalated or rejected ticket is accepted again.
func (s *TicketService) AssignAndAccept(ctx context.Context, ticketID, assigneeID string) (*domain.Ticket, error) {
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, domain.Validationf("assignee id required")
	}
	var previous *string
	ticket, err := s.transition(ctx, ticketID, domain.TicketStatusAccepted, &assigneeID, "", func(t *domain.Ticket, now time.Time) {
		previous = t.AssigneeID
		t.AssigneeID = &assigneeID
		if t.AcceptedAt == nil {
			t.AcceptedAt = &now
		}
	}, func(ctx context.Context, t *domain.Ticket) error {
		return s.recordHistory(ctx, &domain.TicketHistory{
			TicketID:    t.ID,
			ChangedByID: &assigneeID,
			ChangeType:  domain.ChangeTypeAssignee,
			OldValue:    map[string]any{"assignee_id": previous},
			NewValue:    map[string]any{"assignee_id": assigneeID},
			CreatedAt:   t.UpdatedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		ActorID:  &assigneeID,
		Payload: events.TicketAssignedPayload{
			Ticket:          events.NewTicketRef(ticket),
			AssigneeStaffID: assigneeID,
		},
	})
	return ticket, nil
}

// StartWork moves an accepted ticket into progress.
func (s *TicketService) StartWork(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, ticketID, domain.TicketStatusInProgress, nil, "", func(t *domain.Ticket, now time.Time) {
		if t.StartedAt == nil {
			t.StartedAt = &now
		}
	}, nil)
}

// Complete finishes the work and fixes the resolution breach flag.
func (s *TicketService) Complete(ctx context.Context, ticketID string, resolutionNotes *string) (*domain.Ticket, error) {
	return s.transition(ctx, ticketID, domain.TicketStatusCompleted, nil, "", func(t *domain.Ticket, now time.Time) {
		t.CompletedAt = &now
		if resolutionNotes != nil {
			notes := strings.TrimSpace(*resolutionNotes)
			t.ResolutionNotes = &notes
		}
		t.ResolutionBreached = t.ResolutionBreached || now.After(t.DueAt)
	}, nil)
}

// Close closes a completed ticket.
func (s *TicketService) Close(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, ticketID, domain.TicketStatusClosed, nil, "", func(t *domain.Ticket, now time.Time) {
		t.ClosedAt = &now
	}, nil)
}

// Escalate hands the ticket back to its department.
func (s *TicketService) Escalate(ctx context.Context, ticketID string, reason *string) (*domain.Ticket, error) {
	return s.transition(ctx, ticketID, domain.TicketStatusEscalated, nil, optional(reason), func(t *domain.Ticket, now time.Time) {
		t.EscalatedAt = &now
	}, nil)
}

// Reject declines a pending ticket.
func (s *TicketService) Reject(ctx context.Context, ticketID string, reason *string) (*domain.Ticket, error) {
	return s.transition(ctx, ticketID, domain.TicketStatusRejected, nil, optional(reason), func(t *domain.Ticket, now time.Time) {
		t.RejectedAt = &now
	}, nil)
}

// transition runs one state change under the ticket lock and inside a
// transaction. Events are published after commit.
func (s *TicketService) transition(
	ctx context.Context,
	ticketID string,
	next domain.TicketStatus,
	actorID *string,
	comment string,
	mutate func(t *domain.Ticket, now time.Time),
	extra func(ctx context.Context, t *domain.Ticket) error,
) (*domain.Ticket, error) {
	ctx, span := s.tracer.Start(ctx, "ticket.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket.id", ticketID),
		attribute.String("ticket.next_status", string(next)),
	)

	unlock := s.locks.Lock(ticketID)
	defer unlock()

	var (
		updated                    *domain.Ticket
		oldStatus                  domain.TicketStatus
		newResponse, newResolution bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !isValidTransition(ticket.Status, next) {
			return &domain.TransitionError{From: ticket.Status, To: next}
		}
		now := s.now()
		oldStatus = ticket.Status
		beforeResp, beforeRes := ticket.ResponseBreached, ticket.ResolutionBreached
		sla.Apply(ticket, now)
		ticket.Status = next
		mutate(ticket, now)
		sla.Apply(ticket, now)
		newResponse = ticket.ResponseBreached && !beforeResp
		newResolution = ticket.ResolutionBreached && !beforeRes
		ticket.UpdatedAt = now

		if err := s.tickets.Update(ctx, ticket); err != nil {
			return err
		}
		if err := s.recordStatusChange(ctx, actorID, ticket.ID, oldStatus, next, comment, now); err != nil {
			return err
		}
		if extra != nil {
			if err := extra(ctx, ticket); err != nil {
				return err
			}
		}
		updated = ticket
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: updated.ID,
		ActorID:  actorID,
		Payload: events.TicketStatusChangedPayload{
			Ticket:    events.NewTicketRef(updated),
			OldStatus: oldStatus,
			NewStatus: next,
			Comment:   comment,
		},
	})
	if newResponse || newResolution {
		s.publishBreach(ctx, updated, newResponse, newResolution)
	}
	return updated, nil
}

// GetTicket loads a ticket and refreshes its breach flags.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	newResponse, newResolution := sla.Apply(ticket, now)
	if !newResponse && !newResolution {
		return ticket, nil
	}
	if err := s.tickets.UpdateBreachFlags(ctx, ticket.ID, ticket.ResponseBreached, ticket.ResolutionBreached, now); err != nil {
		s.logger.Warn("persist breach flags failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return ticket, nil
	}
	ticket.UpdatedAt = now
	s.publishBreach(ctx, ticket, newResponse, newResolution)
	return ticket, nil
}

// ListTickets returns paginated tickets.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, repository.TicketFilter{
		Statuses:      filter.Statuses,
		DepartmentID:  filter.DepartmentID,
		RequestTypeID: filter.RequestTypeID,
		AssigneeID:    filter.AssigneeID,
		ContactID:     filter.ContactID,
		Breached:      filter.Breached,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	})
}

// History returns audit entries for a ticket.
func (s *TicketService) History(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	return s.history.ListByTicket(ctx, ticketID, limit, offset)
}

func (s *TicketService) snapshot() *catalog.Snapshot {
	if s.catalog == nil {
		return catalog.Empty()
	}
	return s.catalog.Current()
}

func (s *TicketService) publishBreach(ctx context.Context, t *domain.Ticket, response, resolution bool) {
	s.logger.Info("sla breached",
		zap.String("ticket_id", t.ID),
		zap.Bool("response", response),
		zap.Bool("resolution", resolution))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventSLABreached,
		TicketID: t.ID,
		Payload: events.SLABreachedPayload{
			Ticket:             events.NewTicketRef(t),
			ResponseBreached:   response,
			ResolutionBreached: resolution,
			DueAt:              t.DueAt,
			ResponseDueAt:      t.ResponseDueAt,
		},
	})
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.now, event)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, now func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	// Publish only fails on a full queue, which the dispatcher already logs.
	_ = dispatcher.Publish(ctx, event)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func isValidTransition(current, next domain.TicketStatus) bool {
	return domain.CanTransition(current, next)
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorID *string, ticketID string, oldStatus, newStatus domain.TicketStatus, comment string, at time.Time) error {
	newValue := map[string]any{"status": newStatus}
	if comment != "" {
		newValue["comment"] = comment
	}
	return s.recordHistory(ctx, &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    newValue,
		CreatedAt:   at,
	})
}

func (s *TicketService) recordHistory(ctx context.Context, entry *domain.TicketHistory) error {
	if s.history == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	return s.history.Create(ctx, entry)
}
