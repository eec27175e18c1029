package dto

import (
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

// ClassifyRequest payload.
type ClassifyRequest struct {
	Text string `json:"text"`
}

// ClassificationResponse mirrors a classification outcome.
type ClassificationResponse struct {
	RequestTypeID         *int64   `json:"request_type_id"`
	SuggestedDepartmentID *int64   `json:"suggested_department_id"`
	MatchedKeywords       []string `json:"matched_keywords"`
	Confidence            float64  `json:"confidence"`
	SnapshotVersion       int64    `json:"snapshot_version"`
}

// InboundMessageRequest is a guest message from the messaging channel.
type InboundMessageRequest struct {
	ContactID string `json:"contact_id"`
	Body      string `json:"body"`
}

// CheckoutEventRequest signals a guest checkout.
type CheckoutEventRequest struct {
	ContactID string `json:"contact_id"`
}

// ConversationResponse summarizes what one inbound message did.
type ConversationResponse struct {
	ContactID  string                  `json:"contact_id"`
	State      domain.ConversationStep `json:"state"`
	Replies    []string                `json:"replies"`
	Ticket     *TicketResponse         `json:"ticket,omitempty"`
	Unmatched  *UnmatchedResponse      `json:"unmatched,omitempty"`
	FeedbackID *string                 `json:"feedback_id,omitempty"`
}

// ResolveUnmatchedRequest is a staff triage decision.
type ResolveUnmatchedRequest struct {
	RequestTypeID int64  `json:"request_type_id"`
	DepartmentID  int64  `json:"department_id"`
	Priority      string `json:"priority"`
	ResolvedBy    string `json:"resolved_by"`
}

// IgnoreUnmatchedRequest payload.
type IgnoreUnmatchedRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

// UnmatchedResponse represents an unmatched item.
type UnmatchedResponse struct {
	ID                     string                 `json:"id"`
	ContactID              string                 `json:"contact_id"`
	GuestID                *string                `json:"guest_id,omitempty"`
	MessageBody            string                 `json:"message_body"`
	SuggestedRequestTypeID *int64                 `json:"suggested_request_type_id"`
	SuggestedDepartmentID  *int64                 `json:"suggested_department_id"`
	Confidence             float64                `json:"confidence"`
	MatchedKeywords        []string               `json:"matched_keywords"`
	Status                 domain.UnmatchedStatus `json:"status"`
	ResolvedTicketID       *string                `json:"resolved_ticket_id,omitempty"`
	ResolvedBy             *string                `json:"resolved_by,omitempty"`
	ResolvedAt             *time.Time             `json:"resolved_at,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
}

// NewClassificationResponse maps a classification result.
func NewClassificationResponse(r domain.ClassificationResult) ClassificationResponse {
	keywords := r.MatchedKeywords
	if keywords == nil {
		keywords = []string{}
	}
	return ClassificationResponse{
		RequestTypeID:         r.RequestTypeID,
		SuggestedDepartmentID: r.SuggestedDepartmentID,
		MatchedKeywords:       keywords,
		Confidence:            r.Confidence,
		SnapshotVersion:       r.SnapshotVersion,
	}
}

// NewUnmatchedResponse maps an unmatched item.
func NewUnmatchedResponse(u *domain.UnmatchedItem) UnmatchedResponse {
	keywords := u.MatchedKeywords
	if keywords == nil {
		keywords = []string{}
	}
	return UnmatchedResponse{
		ID:                     u.ID,
		ContactID:              u.ContactID,
		GuestID:                u.GuestID,
		MessageBody:            u.MessageBody,
		SuggestedRequestTypeID: u.SuggestedRequestTypeID,
		SuggestedDepartmentID:  u.SuggestedDepartmentID,
		Confidence:             u.Confidence,
		MatchedKeywords:        keywords,
		Status:                 u.Status,
		ResolvedTicketID:       u.ResolvedTicketID,
		ResolvedBy:             u.ResolvedBy,
		ResolvedAt:             u.ResolvedAt,
		CreatedAt:              u.CreatedAt,
	}
}
