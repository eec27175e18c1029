package dto

import (
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	RequestTypeID *int64  `json:"request_type_id"`
	DepartmentID  *int64  `json:"department_id"`
	Priority      string  `json:"priority"`
	Notes         string  `json:"notes"`
	ContactID     *string `json:"contact_id"`
	GuestID       *string `json:"guest_id"`
	RoomNumber    *string `json:"room_number"`
}

// AcceptTicketRequest payload.
type AcceptTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// CompleteTicketRequest payload.
type CompleteTicketRequest struct {
	ResolutionNotes *string `json:"resolution_notes"`
}

// ReasonRequest carries an optional reason for escalation or rejection.
type ReasonRequest struct {
	Reason *string `json:"reason"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID                 string                `json:"id"`
	ExternalKey        string                `json:"external_key"`
	RequestTypeID      *int64                `json:"request_type_id"`
	DepartmentID       *int64                `json:"department_id"`
	Priority           domain.TicketPriority `json:"priority"`
	Status             domain.TicketStatus   `json:"status"`
	Source             domain.TicketSource   `json:"source"`
	GuestID            *string               `json:"guest_id,omitempty"`
	ContactID          *string               `json:"contact_id,omitempty"`
	RoomNumber         *string               `json:"room_number,omitempty"`
	Notes              string                `json:"notes"`
	ResolutionNotes    *string               `json:"resolution_notes,omitempty"`
	AssigneeID         *string               `json:"assignee_id,omitempty"`
	PolicySource       domain.PolicySource   `json:"policy_source"`
	ResponseDueAt      time.Time             `json:"response_due_at"`
	DueAt              time.Time             `json:"due_at"`
	ResponseBreached   bool                  `json:"response_breached"`
	ResolutionBreached bool                  `json:"resolution_breached"`
	SLABreached        bool                  `json:"sla_breached"`
	CreatedAt          time.Time             `json:"created_at"`
	AcceptedAt         *time.Time            `json:"accepted_at,omitempty"`
	StartedAt          *time.Time            `json:"started_at,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	ClosedAt           *time.Time            `json:"closed_at,omitempty"`
	EscalatedAt        *time.Time            `json:"escalated_at,omitempty"`
	RejectedAt         *time.Time            `json:"rejected_at,omitempty"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// TicketHistoryResponse represents an audit entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID *string                 `json:"changed_by_id,omitempty"`
	OldValue    map[string]any          `json:"old_value,omitempty"`
	NewValue    map[string]any          `json:"new_value,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewTicketResponse maps a ticket to its response shape.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:                 t.ID,
		ExternalKey:        t.ExternalKey,
		RequestTypeID:      t.RequestTypeID,
		DepartmentID:       t.DepartmentID,
		Priority:           t.Priority,
		Status:             t.Status,
		Source:             t.Source,
		GuestID:            t.GuestID,
		ContactID:          t.ContactID,
		RoomNumber:         t.RoomNumber,
		Notes:              t.Notes,
		ResolutionNotes:    t.ResolutionNotes,
		AssigneeID:         t.AssigneeID,
		PolicySource:       t.PolicySource,
		ResponseDueAt:      t.ResponseDueAt,
		DueAt:              t.DueAt,
		ResponseBreached:   t.ResponseBreached,
		ResolutionBreached: t.ResolutionBreached,
		SLABreached:        t.SLABreached(),
		CreatedAt:          t.CreatedAt,
		AcceptedAt:         t.AcceptedAt,
		StartedAt:          t.StartedAt,
		CompletedAt:        t.CompletedAt,
		ClosedAt:           t.ClosedAt,
		EscalatedAt:        t.EscalatedAt,
		RejectedAt:         t.RejectedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

// NewTicketHistoryResponse maps a history entry.
func NewTicketHistoryResponse(h *domain.TicketHistory) TicketHistoryResponse {
	return TicketHistoryResponse{
		ID:          h.ID,
		ChangeType:  h.ChangeType,
		ChangedByID: h.ChangedByID,
		OldValue:    h.OldValue,
		NewValue:    h.NewValue,
		CreatedAt:   h.CreatedAt,
	}
}
