package repository

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/persistence"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var ticketColumns = []string{
	"id", "external_key", "request_type_id", "department_id", "priority", "status", "source",
	"guest_id", "contact_id", "room_number", "notes", "resolution_notes", "assignee_id", "policy_source",
	"created_at", "accepted_at", "started_at", "completed_at", "closed_at", "escalated_at", "rejected_at",
	"updated_at", "due_at", "response_due_at", "response_breached", "resolution_breached",
}

type ticketRepository struct {
	db persistence.DB
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db persistence.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	query, args, err := psql.Insert("tickets").
		Columns(ticketColumns...).
		Values(ticketValues(ticket)...).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := persistence.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...); err != nil {
		return mapError(err, "ticket", ticket.ID)
	}
	return nil
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET request_type_id=$1, department_id=$2, priority=$3, status=$4,
            guest_id=$5, contact_id=$6, room_number=$7, notes=$8, resolution_notes=$9, assignee_id=$10,
            accepted_at=$11, started_at=$12, completed_at=$13, closed_at=$14, escalated_at=$15, rejected_at=$16,
            updated_at=$17, response_breached=$18, resolution_breached=$19
        WHERE id=$20`
	cmd, err := persistence.QuerierFromCtx(ctx, r.db).Exec(ctx, query,
		ticket.RequestTypeID,
		ticket.DepartmentID,
		ticket.Priority,
		ticket.Status,
		ticket.GuestID,
		ticket.ContactID,
		ticket.RoomNumber,
		ticket.Notes,
		ticket.ResolutionNotes,
		ticket.AssigneeID,
		ticket.AcceptedAt,
		ticket.StartedAt,
		ticket.CompletedAt,
		ticket.ClosedAt,
		ticket.EscalatedAt,
		ticket.RejectedAt,
		ticket.UpdatedAt,
		ticket.ResponseBreached,
		ticket.ResolutionBreached,
		ticket.ID,
	)
	if err != nil {
		return mapError(err, "ticket", ticket.ID)
	}
	if cmd.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "ticket", ticket.ID)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, id, false)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.fetchSingle(ctx, id, true)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, id string, lock bool) (*domain.Ticket, error) {
	builder := psql.Select(ticketColumns...).From("tickets").Where(squirrel.Eq{"id": id})
	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	ticket, err := scanTicket(persistence.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "ticket", id)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	limit, offset := normalizeLimit(filter.Limit, filter.Offset)
	builder := psql.Select(ticketColumns...).From("tickets")

	if len(filter.Statuses) > 0 {
		builder = builder.Where(squirrel.Eq{"status": statusStrings(filter.Statuses)})
	}
	if filter.DepartmentID != nil {
		builder = builder.Where(squirrel.Eq{"department_id": *filter.DepartmentID})
	}
	if filter.RequestTypeID != nil {
		builder = builder.Where(squirrel.Eq{"request_type_id": *filter.RequestTypeID})
	}
	if filter.AssigneeID != nil {
		builder = builder.Where(squirrel.Eq{"assignee_id": *filter.AssigneeID})
	}
	if filter.ContactID != nil {
		builder = builder.Where(squirrel.Eq{"contact_id": *filter.ContactID})
	}
	if filter.Breached != nil {
		if *filter.Breached {
			builder = builder.Where(squirrel.Or{squirrel.Eq{"response_breached": true}, squirrel.Eq{"resolution_breached": true}})
		} else {
			builder = builder.Where(squirrel.Eq{"response_breached": false, "resolution_breached": false})
		}
	}

	query, args, err := builder.
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, err
	}
	return r.query(ctx, query, args...)
}

func (r *ticketRepository) ListOpenAfter(ctx context.Context, afterID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 200
	}
	builder := psql.Select(ticketColumns...).
		From("tickets").
		Where(squirrel.Eq{"status": statusStrings(domain.OpenStatuses)})
	if afterID != "" {
		builder = builder.Where(squirrel.Gt{"id": afterID})
	}
	query, args, err := builder.OrderBy("id").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, err
	}
	return r.query(ctx, query, args...)
}

func (r *ticketRepository) UpdateBreachFlags(ctx context.Context, id string, responseBreached, resolutionBreached bool, updatedAt time.Time) error {
	const query = `
        UPDATE tickets SET response_breached=$1, resolution_breached=$2, updated_at=$3
        WHERE id=$4`
	cmd, err := persistence.QuerierFromCtx(ctx, r.db).Exec(ctx, query, responseBreached, resolutionBreached, updatedAt, id)
	if err != nil {
		return mapError(err, "ticket", id)
	}
	if cmd.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "ticket", id)
	}
	return nil
}

func (r *ticketRepository) query(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "tickets", "")
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func ticketValues(t *domain.Ticket) []any {
	return []any{
		t.ID, t.ExternalKey, t.RequestTypeID, t.DepartmentID, t.Priority, t.Status, t.Source,
		t.GuestID, t.ContactID, t.RoomNumber, t.Notes, t.ResolutionNotes, t.AssigneeID, t.PolicySource,
		t.CreatedAt, t.AcceptedAt, t.StartedAt, t.CompletedAt, t.ClosedAt, t.EscalatedAt, t.RejectedAt,
		t.UpdatedAt, t.DueAt, t.ResponseDueAt, t.ResponseBreached, t.ResolutionBreached,
	}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(
		&t.ID,
		&t.ExternalKey,
		&t.RequestTypeID,
		&t.DepartmentID,
		&t.Priority,
		&t.Status,
		&t.Source,
		&t.GuestID,
		&t.ContactID,
		&t.RoomNumber,
		&t.Notes,
		&t.ResolutionNotes,
		&t.AssigneeID,
		&t.PolicySource,
		&t.CreatedAt,
		&t.AcceptedAt,
		&t.StartedAt,
		&t.CompletedAt,
		&t.ClosedAt,
		&t.EscalatedAt,
		&t.RejectedAt,
		&t.UpdatedAt,
		&t.DueAt,
		&t.ResponseDueAt,
		&t.ResponseBreached,
		&t.ResolutionBreached,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
