package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/events"
	"github.com/spec-kit/service-desk/internal/notify"
)

// NotificationRecorder counts notification outcomes.
type NotificationRecorder interface {
	RecordNotification(kind string, failed bool)
}

// NotificationService turns domain events into notifications.
type NotificationService struct {
	dispatcher events.Dispatcher
	sink       notify.Sink
	logger     *zap.Logger
	recorder   NotificationRecorder
}

// NewNotificationService creates the service. A nil sink logs notifications.
func NewNotificationService(dispatcher events.Dispatcher, sink notify.Sink, logger *zap.Logger, recorder NotificationRecorder) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = notify.NewLogSink(logger)
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sink:       sink,
		logger:     logger,
		recorder:   recorder,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventSLABreached, n.handleSLABreached)
	n.dispatcher.Subscribe(events.EventUnmatchedCreated, n.handleUnmatchedCreated)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleUnmatchedCreated(_ context.Context, event events.Event) error {
	n.logger.Info("UnmatchedCreated", zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	return n.send(ctx, event, domain.Notification{
		Kind:          domain.NotificationTicketAssigned,
		RecipientType: domain.RecipientAssignee,
		RecipientID:   payload.AssigneeStaffID,
		Title:         "Ticket " + payload.Ticket.ExternalKey + " assigned to you",
		Body:          ticketSummary(payload.Ticket),
	})
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	ref := payload.Ticket
	switch payload.NewStatus {
	case domain.TicketStatusCompleted:
		return n.toRequester(ctx, event, ref, domain.NotificationTicketCompleted,
			"Your request "+ref.ExternalKey+" has been completed")
	case domain.TicketStatusClosed:
		return n.toRequester(ctx, event, ref, domain.NotificationTicketResolved,
			"Your request "+ref.ExternalKey+" has been resolved")
	case domain.TicketStatusRejected:
		return n.toRequester(ctx, event, ref, domain.NotificationTicketRejected,
			"Your request "+ref.ExternalKey+" could not be accepted")
	case domain.TicketStatusEscalated:
		return n.toDepartment(ctx, event, ref, domain.NotificationTicketEscalated,
			"Ticket "+ref.ExternalKey+" escalated", payload.Comment)
	}
	return nil
}

func (n *NotificationService) handleSLABreached(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SLABreachedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	var which string
	switch {
	case payload.ResponseBreached && payload.ResolutionBreached:
		which = "response and resolution"
	case payload.ResponseBreached:
		which = "response"
	default:
		which = "resolution"
	}
	return n.toDepartment(ctx, event, payload.Ticket, domain.NotificationSLABreached,
		"Ticket "+payload.Ticket.ExternalKey+" breached its "+which+" SLA", "")
}

func (n *NotificationService) toRequester(ctx context.Context, event events.Event, ref events.TicketRef, kind domain.NotificationKind, title string) error {
	if ref.ContactID == nil {
		n.logger.Debug("no requester contact; notification skipped",
			zap.String("ticket_id", event.TicketID),
			zap.String("kind", string(kind)))
		return nil
	}
	return n.send(ctx, event, domain.Notification{
		Kind:          kind,
		RecipientType: domain.RecipientRequester,
		RecipientID:   *ref.ContactID,
		Title:         title,
		Body:          ticketSummary(ref),
	})
}

func (n *NotificationService) toDepartment(ctx context.Context, event events.Event, ref events.TicketRef, kind domain.NotificationKind, title, reason string) error {
	if ref.DepartmentID == nil {
		n.logger.Warn("ticket has no department; notification skipped",
			zap.String("ticket_id", event.TicketID),
			zap.String("kind", string(kind)))
		return nil
	}
	body := ticketSummary(ref)
	if reason != "" {
		body += "\nReason: " + reason
	}
	return n.send(ctx, event, domain.Notification{
		Kind:          kind,
		RecipientType: domain.RecipientDepartment,
		RecipientID:   strconv.FormatInt(*ref.DepartmentID, 10),
		Title:         title,
		Body:          body,
	})
}

func (n *NotificationService) send(ctx context.Context, event events.Event, notification domain.Notification) error {
	if event.TicketID != "" {
		ticketID := event.TicketID
		notification.RelatedTicketID = &ticketID
	}
	err := n.sink.Notify(ctx, notification)
	if n.recorder != nil {
		n.recorder.RecordNotification(string(notification.Kind), err != nil)
	}
	if err != nil {
		return fmt.Errorf("notify %s: %w", notification.Kind, err)
	}
	return nil
}

func ticketSummary(ref events.TicketRef) string {
	summary := "Priority " + string(ref.Priority)
	if ref.RoomNumber != nil {
		summary += ", room " + *ref.RoomNumber
	}
	return summary
}
