// Package sla resolves deadline policies and evaluates breaches.
package sla

import (
	"fmt"

	"github.com/spec-kit/service-desk/internal/catalog"
	"github.com/spec-kit/service-desk/internal/config"
	"github.com/spec-kit/service-desk/internal/domain"
)

// Resolver picks the SLA policy for a ticket. It holds no mutable state.
type Resolver struct {
	fallback map[domain.TicketPriority]config.FallbackMinutes
}

// NewResolver builds a resolver over the fallback table.
func NewResolver(fallback map[domain.TicketPriority]config.FallbackMinutes) *Resolver {
	if fallback == nil {
		fallback = config.DefaultFallback()
	}
	table := make(map[domain.TicketPriority]config.FallbackMinutes, len(fallback))
	for k, v := range fallback {
		table[k] = v
	}
	return &Resolver{fallback: table}
}

// Resolve returns the effective policy: an exact override first, then the
// priority default, then the fallback table.
func (r *Resolver) Resolve(snapshot *catalog.Snapshot, departmentID, requestTypeID *int64, priority domain.TicketPriority) (domain.SLAPolicy, domain.PolicySource, error) {
	if snapshot != nil {
		if departmentID != nil && requestTypeID != nil {
			if o, ok := snapshot.Override(*departmentID, *requestTypeID, priority); ok {
				return domain.SLAPolicy{
					Priority:          priority,
					ResponseMinutes:   o.ResponseMinutes,
					ResolutionMinutes: o.ResolutionMinutes,
				}, domain.PolicySourceOverride, nil
			}
		}
		if p, ok := snapshot.Policy(priority); ok {
			return p, domain.PolicySourceDefault, nil
		}
	}

	row, ok := r.fallback[priority]
	if !ok {
		return domain.SLAPolicy{}, "", fmt.Errorf("%w: priority %q", domain.ErrPolicyNotFound, priority)
	}
	return domain.SLAPolicy{
		Priority:          priority,
		ResponseMinutes:   row.Response,
		ResolutionMinutes: row.Resolution,
	}, domain.PolicySourceFallback, nil
}
