package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/persistence"
)

var unmatchedColumns = []string{
	"id", "contact_id", "guest_id", "message_body", "suggested_request_type_id", "suggested_department_id",
	"confidence", "matched_keywords", "status", "resolved_ticket_id", "resolved_by", "resolved_at", "created_at",
}

type unmatchedRepository struct {
	db persistence.DB
}

// NewUnmatchedRepository builds the repository.
func NewUnmatchedRepository(db persistence.DB) UnmatchedRepository {
	return &unmatchedRepository{db: db}
}

func (r *unmatchedRepository) Create(ctx context.Context, item *domain.UnmatchedItem) error {
	keywords := item.MatchedKeywords
	if keywords == nil {
		keywords = []string{}
	}
	query, args, err := psql.Insert("unmatched_items").
		Columns(unmatchedColumns...).
		Values(item.ID, item.ContactID, item.GuestID, item.MessageBody, item.SuggestedRequestTypeID,
			item.SuggestedDepartmentID, item.Confidence, keywords, item.Status, item.ResolvedTicketID,
			item.ResolvedBy, item.ResolvedAt, item.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = persistence.QuerierFromCtx(ctx, r.db).Exec(ctx, query, args...)
	return mapError(err, "unmatched item", item.ID)
}

// Update writes the triage outcome; message content is immutable.
func (r *unmatchedRepository) Update(ctx context.Context, item *domain.UnmatchedItem) error {
	const query = `
        UPDATE unmatched_items SET status=$1, resolved_ticket_id=$2, resolved_by=$3, resolved_at=$4
        WHERE id=$5`
	cmd, err := persistence.QuerierFromCtx(ctx, r.db).Exec(ctx, query,
		item.Status,
		item.ResolvedTicketID,
		item.ResolvedBy,
		item.ResolvedAt,
		item.ID,
	)
	if err != nil {
		return mapError(err, "unmatched item", item.ID)
	}
	if cmd.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "unmatched item", item.ID)
	}
	return nil
}

func (r *unmatchedRepository) GetByID(ctx context.Context, id string) (*domain.UnmatchedItem, error) {
	return r.fetch(ctx, id, false)
}

func (r *unmatchedRepository) GetForUpdate(ctx context.Context, id string) (*domain.UnmatchedItem, error) {
	return r.fetch(ctx, id, true)
}

func (r *unmatchedRepository) fetch(ctx context.Context, id string, lock bool) (*domain.UnmatchedItem, error) {
	builder := psql.Select(unmatchedColumns...).From("unmatched_items").Where(squirrel.Eq{"id": id})
	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	item, err := scanUnmatched(persistence.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "unmatched item", id)
	}
	return item, nil
}

func (r *unmatchedRepository) List(ctx context.Context, status *domain.UnmatchedStatus, limit, offset int) ([]domain.UnmatchedItem, error) {
	limit, offset = normalizeLimit(limit, offset)
	builder := psql.Select(unmatchedColumns...).From("unmatched_items")
	if status != nil {
		builder = builder.Where(squirrel.Eq{"status": string(*status)})
	}
	query, args, err := builder.OrderBy("created_at ASC", "id").Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "unmatched items", "")
	}
	defer rows.Close()

	result := []domain.UnmatchedItem{}
	for rows.Next() {
		item, err := scanUnmatched(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

func scanUnmatched(row pgx.Row) (*domain.UnmatchedItem, error) {
	var item domain.UnmatchedItem
	if err := row.Scan(
		&item.ID,
		&item.ContactID,
		&item.GuestID,
		&item.MessageBody,
		&item.SuggestedRequestTypeID,
		&item.SuggestedDepartmentID,
		&item.Confidence,
		&item.MatchedKeywords,
		&item.Status,
		&item.ResolvedTicketID,
		&item.ResolvedBy,
		&item.ResolvedAt,
		&item.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
