package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusAccepted   TicketStatus = "ACCEPTED"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusClosed     TicketStatus = "CLOSED"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
	TicketStatusRejected   TicketStatus = "REJECTED"
)

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityNormal   TicketPriority = "NORMAL"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// Priorities lists every known priority, most urgent first.
var Priorities = []TicketPriority{
	TicketPriorityCritical,
	TicketPriorityHigh,
	TicketPriorityNormal,
	TicketPriorityLow,
}

// TicketSource records how a ticket entered the system.
type TicketSource string

const (
	TicketSourceManual  TicketSource = "MANUAL"
	TicketSourceChannel TicketSource = "CHANNEL"
)

// OpenStatuses are the non-terminal states the breach sweep scans.
// Rejected tickets wait for re-acceptance and carry no running clock.
var OpenStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusAccepted,
	TicketStatusInProgress,
	TicketStatusEscalated,
}

// AllowedTransitions is the ticket state machine.
var AllowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusPending:    {TicketStatusAccepted, TicketStatusEscalated, TicketStatusRejected},
	TicketStatusAccepted:   {TicketStatusInProgress},
	TicketStatusInProgress: {TicketStatusCompleted, TicketStatusEscalated},
	TicketStatusCompleted:  {TicketStatusClosed},
	TicketStatusEscalated:  {TicketStatusAccepted},
	TicketStatusRejected:   {TicketStatusAccepted},
	TicketStatusClosed:     {},
}

// CanTransition reports whether current may move to next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range AllowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Valid reports whether the status is part of the state machine.
func (s TicketStatus) Valid() bool {
	_, ok := AllowedTransitions[s]
	return ok
}

// IsOpen reports whether the status is scanned for breaches.
func (s TicketStatus) IsOpen() bool {
	for _, open := range OpenStatuses {
		if open == s {
			return true
		}
	}
	return false
}

// ParsePriority accepts any casing of a known priority.
func ParsePriority(raw string) (TicketPriority, bool) {
	p := TicketPriority(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Priorities {
		if known == p {
			return p, true
		}
	}
	return "", false
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(raw string) (TicketStatus, bool) {
	s := TicketStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Ticket is the aggregate for guest service requests.
type Ticket struct {
	ID              string
	ExternalKey     string
	RequestTypeID   *int64
	DepartmentID    *int64
	Priority        TicketPriority
	Status          TicketStatus
	Source          TicketSource
	GuestID         *string
	ContactID       *string
	RoomNumber      *string
	Notes           string
	ResolutionNotes *string
	AssigneeID      *string
	PolicySource    PolicySource

	CreatedAt   time.Time
	AcceptedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	ClosedAt    *time.Time
	EscalatedAt *time.Time
	RejectedAt  *time.Time
	UpdatedAt   time.Time

	DueAt         time.Time
	ResponseDueAt time.Time

	ResponseBreached   bool
	ResolutionBreached bool
}

// SLABreached is derived from the two breach flags.
func (t *Ticket) SLABreached() bool {
	return t.ResponseBreached || t.ResolutionBreached
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.RequestTypeID = cloneInt64(t.RequestTypeID)
	c.DepartmentID = cloneInt64(t.DepartmentID)
	c.GuestID = cloneString(t.GuestID)
	c.ContactID = cloneString(t.ContactID)
	c.RoomNumber = cloneString(t.RoomNumber)
	c.ResolutionNotes = cloneString(t.ResolutionNotes)
	c.AssigneeID = cloneString(t.AssigneeID)
	c.AcceptedAt = cloneTime(t.AcceptedAt)
	c.StartedAt = cloneTime(t.StartedAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.EscalatedAt = cloneTime(t.EscalatedAt)
	c.RejectedAt = cloneTime(t.RejectedAt)
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
