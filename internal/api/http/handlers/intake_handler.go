package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-desk/internal/api/dto"
	"github.com/spec-kit/service-desk/internal/service"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// IntakeHandler receives guest messages and checkout events.
type IntakeHandler struct {
	intake        *service.IntakeService
	conversations *service.ConversationService
}

// NewIntakeHandler constructs handler.
func NewIntakeHandler(intake *service.IntakeService, conversations *service.ConversationService) *IntakeHandler {
	return &IntakeHandler{intake: intake, conversations: conversations}
}

// Classify POST /classify. Scores text without creating anything.
func (h *IntakeHandler) Classify(c *fiber.Ctx) error {
	var req dto.ClassifyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result := h.intake.Classify(req.Text)
	return c.JSON(fiber.Map{"data": dto.NewClassificationResponse(result)})
}

// Inbound POST /inbound.
func (h *IntakeHandler) Inbound(c *fiber.Ctx) error {
	var req dto.InboundMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.conversations.HandleInbound(c.UserContext(), req.ContactID, req.Body)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": conversationResponse(req.ContactID, result)})
}

// Checkout POST /events/checkout.
func (h *IntakeHandler) Checkout(c *fiber.Ctx) error {
	var req dto.CheckoutEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.conversations.HandleCheckout(c.UserContext(), req.ContactID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": conversationResponse(req.ContactID, result)})
}

func conversationResponse(contactID string, result *service.ConversationResult) dto.ConversationResponse {
	resp := dto.ConversationResponse{ContactID: contactID, Replies: result.Replies}
	if resp.Replies == nil {
		resp.Replies = []string{}
	}
	if result.State != nil {
		resp.State = result.State.CurrentState
	}
	if result.Ticket != nil {
		t := dto.NewTicketResponse(result.Ticket)
		resp.Ticket = &t
	}
	if result.Unmatched != nil {
		u := dto.NewUnmatchedResponse(result.Unmatched)
		resp.Unmatched = &u
	}
	if result.Feedback != nil {
		resp.FeedbackID = &result.Feedback.ID
	}
	return resp
}
