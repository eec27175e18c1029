package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/service-desk/internal/domain"
)

// WebhookSink posts notifications as JSON to a URL.
type WebhookSink struct {
	url     string
	timeout time.Duration
}

// NewWebhookSink constructs a sink posting notifications as JSON to url.
func NewWebhookSink(url string, timeout time.Duration) *WebhookSink {
	return &WebhookSink{url: url, timeout: timeout}
}

func (s *WebhookSink) Notify(ctx context.Context, n domain.Notification) error {
	_, err := postJSON(ctx, s.url, s.timeout, n)
	return err
}

// WebhookChannel hands outbound guest messages to a messaging gateway.
type WebhookChannel struct {
	url     string
	timeout time.Duration
}

// NewWebhookChannel constructs an outbound channel posting guest replies to url.
func NewWebhookChannel(url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{url: url, timeout: timeout}
}

type outboundMessage struct {
	ContactID string `json:"contact_id"`
	Body      string `json:"body"`
}

type outboundResponse struct {
	MessageID string `json:"message_id"`
}

func (c *WebhookChannel) SendText(ctx context.Context, contactID, body string) (string, error) {
	raw, err := postJSON(ctx, c.url, c.timeout, outboundMessage{ContactID: contactID, Body: body})
	if err != nil {
		return "", err
	}
	var resp outboundResponse
	if len(raw) > 0 && json.Unmarshal(raw, &resp) == nil && resp.MessageID != "" {
		return resp.MessageID, nil
	}
	return uuid.NewString(), nil
}

func postJSON(ctx context.Context, url string, timeout time.Duration, payload any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(url)
	agent.JSON(payload)
	if timeout > 0 {
		agent.Timeout(timeout)
	}
	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("post %s: %w", url, errs[0])
	}
	if status >= fiber.StatusBadRequest {
		return nil, fmt.Errorf("post %s: unexpected status %d", url, status)
	}
	return body, nil
}
