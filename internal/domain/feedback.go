package domain

import "time"

// FeedbackAnswer pairs a survey question with the guest's reply.
type FeedbackAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// FeedbackSubmission is a completed post-checkout survey.
type FeedbackSubmission struct {
	ID          string
	ContactID   string
	GuestID     *string
	Answers     []FeedbackAnswer
	SubmittedAt time.Time
}
