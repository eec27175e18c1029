// Package notify delivers notifications to staff and messages to guests.
package notify

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/service-desk/internal/domain"
)

// Sink delivers a notification to staff or guests.
type Sink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Channel sends a text to a guest contact and returns the provider message id.
type Channel interface {
	SendText(ctx context.Context, contactID, body string) (string, error)
}

// LogSink writes notifications to the log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(_ context.Context, n domain.Notification) error {
	fields := []zap.Field{
		zap.String("kind", string(n.Kind)),
		zap.String("recipient_type", string(n.RecipientType)),
		zap.String("recipient_id", n.RecipientID),
		zap.String("title", n.Title),
	}
	if n.RelatedTicketID != nil {
		fields = append(fields, zap.String("ticket_id", *n.RelatedTicketID))
	}
	s.logger.Info("notification", fields...)
	return nil
}

// MultiSink fans a notification out to every sink.
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogChannel logs outbound guest messages instead of sending them.
type LogChannel struct {
	logger *zap.Logger
}

func NewLogChannel(logger *zap.Logger) *LogChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger}
}

func (c *LogChannel) SendText(_ context.Context, contactID, body string) (string, error) {
	id := uuid.NewString()
	c.logger.Info("outbound message",
		zap.String("contact_id", contactID),
		zap.String("message_id", id),
		zap.Int("length", len(body)))
	return id, nil
}
