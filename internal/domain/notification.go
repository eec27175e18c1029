package domain

// NotificationKind enumerates the notifications the engine emits.
type NotificationKind string

const (
	NotificationTicketAssigned  NotificationKind = "TICKET_ASSIGNED"
	NotificationTicketCompleted NotificationKind = "TICKET_COMPLETED"
	NotificationTicketResolved  NotificationKind = "TICKET_RESOLVED"
	NotificationTicketEscalated NotificationKind = "TICKET_ESCALATED"
	NotificationTicketRejected  NotificationKind = "TICKET_REJECTED"
	NotificationSLABreached     NotificationKind = "SLA_BREACHED"
)

// RecipientType says who a notification is addressed to.
type RecipientType string

const (
	RecipientAssignee   RecipientType = "ASSIGNEE"
	RecipientRequester  RecipientType = "REQUESTER"
	RecipientDepartment RecipientType = "DEPARTMENT"
)

// Notification is handed to a NotificationSink.
type Notification struct {
	Kind            NotificationKind `json:"kind"`
	RecipientType   RecipientType    `json:"recipient_type"`
	RecipientID     string           `json:"recipient_id"`
	Title           string           `json:"title"`
	Body            string           `json:"body"`
	RelatedTicketID *string          `json:"related_ticket_id,omitempty"`
}
