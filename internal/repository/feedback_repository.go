package repository

import (
	"context"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/persistence"
)

type feedbackRepository struct {
	db persistence.DB
}

// NewFeedbackRepository builds the repository.
func NewFeedbackRepository(db persistence.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) Create(ctx context.Context, submission *domain.FeedbackSubmission) error {
	const query = `
        INSERT INTO feedback_submissions (id, contact_id, guest_id, answers, submitted_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := persistence.QuerierFromCtx(ctx, r.db).Exec(ctx, query,
		submission.ID,
		submission.ContactID,
		submission.GuestID,
		submission.Answers,
		submission.SubmittedAt,
	)
	return mapError(err, "feedback", submission.ID)
}

func (r *feedbackRepository) ListByContact(ctx context.Context, contactID string) ([]domain.FeedbackSubmission, error) {
	const query = `
        SELECT id, contact_id, guest_id, answers, submitted_at
        FROM feedback_submissions WHERE contact_id=$1 ORDER BY submitted_at ASC`
	rows, err := persistence.QuerierFromCtx(ctx, r.db).Query(ctx, query, contactID)
	if err != nil {
		return nil, mapError(err, "feedback", contactID)
	}
	defer rows.Close()

	result := []domain.FeedbackSubmission{}
	for rows.Next() {
		var s domain.FeedbackSubmission
		if err := rows.Scan(&s.ID, &s.ContactID, &s.GuestID, &s.Answers, &s.SubmittedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}
