package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/sla"
)

// RunBreachSweep re-evaluates every open ticket at now. Per-ticket failures are
// logged and counted; the ticket is picked up again on the next sweep. The
// sweep stops early when ctx is done.
func (s *TicketService) RunBreachSweep(ctx context.Context, now time.Time) (SweepReport, error) {
	ctx, span := s.tracer.Start(ctx, "sla.breach_sweep")
	defer span.End()

	var report SweepReport
	afterID := ""
	for {
		batch, err := s.tickets.ListOpenAfter(ctx, afterID, s.batchSize)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "list open tickets")
			return report, err
		}
		for _, t := range batch {
			if err := ctx.Err(); err != nil {
				span.SetAttributes(sweepAttributes(report)...)
				return report, err
			}
			report.Checked++
			changed, breached, err := s.sweepTicket(ctx, t.ID, now)
			if err != nil {
				report.Failed++
				s.logger.Warn("breach evaluation failed",
					zap.String("ticket_id", t.ID),
					zap.Error(err))
				continue
			}
			if changed {
				report.Updated++
			}
			if breached {
				report.NewlyBreached++
			}
		}
		if len(batch) < s.batchSize {
			break
		}
		afterID = batch[len(batch)-1].ID
	}

	span.SetAttributes(sweepAttributes(report)...)
	s.logger.Debug("breach sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("newly_breached", report.NewlyBreached),
		zap.Int("failed", report.Failed))
	return report, nil
}

// sweepTicket reloads one ticket under its lock and writes breach flags that changed.
func (s *TicketService) sweepTicket(ctx context.Context, ticketID string, now time.Time) (changed, breached bool, err error) {
	unlock := s.locks.Lock(ticketID)
	defer unlock()

	var (
		updated                    *domain.Ticket
		newResponse, newResolution bool
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		ticket, err := s.tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return err
		}
		if !ticket.Status.IsOpen() {
			return nil
		}
		newResponse, newResolution = sla.Apply(ticket, now)
		if !newResponse && !newResolution {
			return nil
		}
		if err := s.tickets.UpdateBreachFlags(ctx, ticket.ID, ticket.ResponseBreached, ticket.ResolutionBreached, now); err != nil {
			return err
		}
		if err := s.recordHistory(ctx, &domain.TicketHistory{
			TicketID:   ticket.ID,
			ChangeType: domain.ChangeTypeBreach,
			NewValue: map[string]any{
				"response_breached":   ticket.ResponseBreached,
				"resolution_breached": ticket.ResolutionBreached,
			},
			CreatedAt: now,
		}); err != nil {
			return err
		}
		updated = ticket
		return nil
	})
	if err != nil || updated == nil {
		return false, false, err
	}
	s.publishBreach(ctx, updated, newResponse, newResolution)
	return true, true, nil
}

func sweepAttributes(r SweepReport) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("sweep.checked", r.Checked),
		attribute.Int("sweep.updated", r.Updated),
		attribute.Int("sweep.newly_breached", r.NewlyBreached),
		attribute.Int("sweep.failed", r.Failed),
	}
}
