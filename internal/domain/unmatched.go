package domain

import "time"

// UnmatchedStatus enumerates triage states for unmatched items.
type UnmatchedStatus string

const (
	UnmatchedStatusPending  UnmatchedStatus = "PENDING"
	UnmatchedStatusResolved UnmatchedStatus = "RESOLVED"
	UnmatchedStatusIgnored  UnmatchedStatus = "IGNORED"
)

// UnmatchedItem is an inbound message the classifier could not route.
type UnmatchedItem struct {
	ID                     string
	ContactID              string
	GuestID                *string
	MessageBody            string
	SuggestedRequestTypeID *int64
	SuggestedDepartmentID  *int64
	Confidence             float64
	MatchedKeywords        []string
	Status                 UnmatchedStatus
	ResolvedTicketID       *string
	ResolvedBy             *string
	ResolvedAt             *time.Time
	// CreatedAt is when the message was received.
	CreatedAt              time.Time
}

// Pending reports whether the item can still be resolved or ignored.
func (u *UnmatchedItem) Pending() bool {
	return u.Status == UnmatchedStatusPending
}
