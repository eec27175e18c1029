package events

import (
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventSLABreached         EventType = "sla_breached"
	EventUnmatchedCreated    EventType = "unmatched_created"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   *string     `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketRef carries the ticket fields notification handlers need.
type TicketRef struct {
	ExternalKey   string                `json:"external_key"`
	DepartmentID  *int64                `json:"department_id,omitempty"`
	RequestTypeID *int64                `json:"request_type_id,omitempty"`
	Priority      domain.TicketPriority `json:"priority"`
	AssigneeID    *string               `json:"assignee_id,omitempty"`
	ContactID     *string               `json:"contact_id,omitempty"`
	GuestID       *string               `json:"guest_id,omitempty"`
	RoomNumber    *string               `json:"room_number,omitempty"`
}

// NewTicketRef copies the routing fields of a ticket.
func NewTicketRef(t *domain.Ticket) TicketRef {
	c := t.Clone()
	return TicketRef{
		ExternalKey:   c.ExternalKey,
		DepartmentID:  c.DepartmentID,
		RequestTypeID: c.RequestTypeID,
		Priority:      c.Priority,
		AssigneeID:    c.AssigneeID,
		ContactID:     c.ContactID,
		GuestID:       c.GuestID,
		RoomNumber:    c.RoomNumber,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Ticket        TicketRef           `json:"ticket"`
	Source        domain.TicketSource `json:"source"`
	DueAt         time.Time           `json:"due_at"`
	ResponseDueAt time.Time           `json:"response_due_at"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Ticket    TicketRef           `json:"ticket"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	Comment   string              `json:"comment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Ticket          TicketRef `json:"ticket"`
	AssigneeStaffID string    `json:"assignee_staff_id"`
}

// SLABreachedPayload payload.
type SLABreachedPayload struct {
	Ticket             TicketRef `json:"ticket"`
	ResponseBreached   bool      `json:"response_breached"`
	ResolutionBreached bool      `json:"resolution_breached"`
	DueAt              time.Time `json:"due_at"`
	ResponseDueAt      time.Time `json:"response_due_at"`
}

// UnmatchedCreatedPayload payload.
type UnmatchedCreatedPayload struct {
	ItemID      string  `json:"item_id"`
	ContactID   string  `json:"contact_id"`
	Confidence  float64 `json:"confidence"`
	BodyPreview string  `json:"body_preview"`
}
