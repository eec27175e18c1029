package sla

import (
	"time"

	"github.com/spec-kit/service-desk/internal/domain"
)

// Deadlines computes both deadlines from the creation time.
func Deadlines(policy domain.SLAPolicy, createdAt time.Time) (responseDueAt, dueAt time.Time) {
	responseDueAt = createdAt.Add(time.Duration(policy.ResponseMinutes) * time.Minute)
	dueAt = createdAt.Add(time.Duration(policy.ResolutionMinutes) * time.Minute)
	return responseDueAt, dueAt
}

// Evaluate reports the breach flags for t at now. Flags already set stay set.
// Only open statuses carry a running clock.
func Evaluate(t *domain.Ticket, now time.Time) (responseBreached, resolutionBreached bool) {
	responseBreached = t.ResponseBreached
	if !responseBreached {
		switch {
		case t.AcceptedAt != nil:
			responseBreached = t.AcceptedAt.After(t.ResponseDueAt)
		case t.Status.IsOpen():
			responseBreached = now.After(t.ResponseDueAt)
		}
	}

	resolutionBreached = t.ResolutionBreached
	if !resolutionBreached {
		switch {
		case t.CompletedAt != nil:
			resolutionBreached = t.CompletedAt.After(t.DueAt)
		case t.Status.IsOpen():
			resolutionBreached = now.After(t.DueAt)
		}
	}
	return responseBreached, resolutionBreached
}

// Apply evaluates t at now and writes the flags back. It reports which flags
// turned true.
func Apply(t *domain.Ticket, now time.Time) (newResponse, newResolution bool) {
	resp, res := Evaluate(t, now)
	newResponse = resp && !t.ResponseBreached
	newResolution = res && !t.ResolutionBreached
	t.ResponseBreached = resp
	t.ResolutionBreached = res
	return newResponse, newResolution
}
