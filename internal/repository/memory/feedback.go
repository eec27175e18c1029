package memory

import (
	"context"
	"sync"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/repository"
)

// FeedbackRepository keeps submissions per contact.
type FeedbackRepository struct {
	mu          sync.RWMutex
	submissions map[string][]domain.FeedbackSubmission
}

func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{submissions: map[string][]domain.FeedbackSubmission{}}
}

var _ repository.FeedbackRepository = (*FeedbackRepository)(nil)

func (r *FeedbackRepository) Create(_ context.Context, submission *domain.FeedbackSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := *submission
	s.Answers = append([]domain.FeedbackAnswer{}, submission.Answers...)
	r.submissions[s.ContactID] = append(r.submissions[s.ContactID], s)
	return nil
}

func (r *FeedbackRepository) ListByContact(_ context.Context, contactID string) ([]domain.FeedbackSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.FeedbackSubmission{}, r.submissions[contactID]...), nil
}
