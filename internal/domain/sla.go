package domain

// PolicySource identifies which tier answered an SLA lookup.
type PolicySource string

const (
	PolicySourceOverride PolicySource = "OVERRIDE"
	PolicySourceDefault  PolicySource = "DEFAULT"
	PolicySourceFallback PolicySource = "FALLBACK"
)

// SLAPolicy holds the default deadlines for one priority.
type SLAPolicy struct {
	Priority          TicketPriority
	ResponseMinutes   int
	ResolutionMinutes int
}

// SLAOverride replaces the default policy for one department, request type and priority.
type SLAOverride struct {
	DepartmentID      int64
	RequestTypeID     int64
	Priority          TicketPriority
	ResponseMinutes   int
	ResolutionMinutes int
}
