package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/classifier"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/repository"
)

// defaultChannelPriority is used for tickets raised from guest messages.
const defaultChannelPriority = domain.TicketPriorityNormal

// IntakeService turns inbound guest text into tickets or unmatched items.
type IntakeService struct {
	tickets    *TicketService
	unmatched  repository.UnmatchedRepository
	guests     repository.GuestRepository
	catalog    *catalog.Provider
	router     classifier.Router
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// IntakeDependencies bundles collaborators for the intake service.
type IntakeDependencies struct {
	Tickets       *TicketService
	UnmatchedRepo repository.UnmatchedRepository
	GuestRepo     repository.GuestRepository
	Catalog       *catalog.Provider
	MinConfidence float64
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Now           func() time.Time
}

// IntakeResult reports where a message was routed. Exactly one of Ticket and
// Unmatched is set.
type IntakeResult struct {
	Classification domain.ClassificationResult
	Ticket         *domain.Ticket
	Unmatched      *domain.UnmatchedItem
}

// NewIntakeService constructs the classification pipeline.
func NewIntakeService(deps IntakeDependencies) *IntakeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &IntakeService{
		tickets:    deps.Tickets,
		unmatched:  deps.UnmatchedRepo,
		guests:     deps.GuestRepo,
		catalog:    deps.Catalog,
		router:     classifier.Router{MinConfidence: deps.MinConfidence},
		dispatcher: deps.Dispatcher,
		logger:     logger,
		now:        now,
	}
}

// Classify runs the keyword classifier against the current catalog.
func (s *IntakeService) Classify(text string) domain.ClassificationResult {
	return classifier.Classify(s.snapshot(), text)
}

// IngestMessage classifies free text and routes it.
func (s *IntakeService) IngestMessage(ctx context.Context, contactID, body string) (*IntakeResult, error) {
	if err := validateMessage(contactID, body); err != nil {
		return nil, err
	}
	result := s.Classify(body)
	return s.route(ctx, contactID, body, result)
}

// IngestSelection routes a description for a request type the guest picked
// from the menu.
func (s *IntakeService) IngestSelection(ctx context.Context, contactID string, requestTypeID int64, body string) (*IntakeResult, error) {
	if err := validateMessage(contactID, body); err != nil {
		return nil, err
	}
	snapshot := s.snapshot()
	if _, ok := snapshot.RequestType(requestTypeID); !ok {
		return nil, domain.Validationf("unknown request type %d", requestTypeID)
	}
	rt := requestTypeID
	result := domain.ClassificationResult{
		RequestTypeID:         &rt,
		MatchedKeywords:       []string{},
		Confidence:            1,
		SuggestedDepartmentID: classifier.InferDepartment(snapshot, requestTypeID),
		SnapshotVersion:       snapshot.Version(),
	}
	return s.route(ctx, contactID, body, result)
}

func (s *IntakeService) route(ctx context.Context, contactID, body string, result domain.ClassificationResult) (*IntakeResult, error) {
	out := &IntakeResult{Classification: result}
	if s.router.Routable(result) {
		contact := contactID
		ticket, err := s.tickets.CreateTicket(ctx, TicketCreateInput{
			RequestTypeID: result.RequestTypeID,
			DepartmentID:  result.SuggestedDepartmentID,
			Priority:      defaultChannelPriority,
			Source:        domain.TicketSourceChannel,
			Notes:         body,
			ContactID:     &contact,
		})
		if err != nil {
			return nil, err
		}
		out.Ticket = ticket
		return out, nil
	}

	item, err := s.createUnmatched(ctx, contactID, body, result)
	if err != nil {
		return nil, err
	}
	out.Unmatched = item
	return out, nil
}

func (s *IntakeService) createUnmatched(ctx context.Context, contactID, body string, result domain.ClassificationResult) (*domain.UnmatchedItem, error) {
	item := &domain.UnmatchedItem{
		ID:                     uuid.NewString(),
		ContactID:              contactID,
		MessageBody:            strings.TrimSpace(body),
		SuggestedRequestTypeID: result.RequestTypeID,
		SuggestedDepartmentID:  result.SuggestedDepartmentID,
		Confidence:             result.Confidence,
		MatchedKeywords:        append([]string{}, result.MatchedKeywords...),
		Status:                 domain.UnmatchedStatusPending,
		CreatedAt:              s.now(),
	}
	if s.guests != nil {
		if guest, err := s.guests.FindByContact(ctx, contactID); err == nil {
			id := guest.ID
			item.GuestID = &id
		}
	}
	if err := s.unmatched.Create(ctx, item); err != nil {
		return nil, err
	}
	s.logger.Info("message routed to unmatched queue",
		zap.String("item_id", item.ID),
		zap.String("contact_id", contactID),
		zap.Float64("confidence", result.Confidence))
	publish(ctx, s.dispatcher, s.now, events.Event{
		Type: events.EventUnmatchedCreated,
		Payload: events.UnmatchedCreatedPayload{
			ItemID:      item.ID,
			ContactID:   item.ContactID,
			Confidence:  item.Confidence,
			BodyPreview: stringPreview(item.MessageBody, 120),
		},
	})
	return item, nil
}

func (s *IntakeService) snapshot() *catalog.Snapshot {
	if s.catalog == nil {
		return catalog.Empty()
	}
	return s.catalog.Current()
}

func validateMessage(contactID, body string) error {
	if strings.TrimSpace(contactID) == "" {
		return domain.Validationf("contact id required")
	}
	if strings.TrimSpace(body) == "" {
		return domain.Validationf("message body required")
	}
	return nil
}
