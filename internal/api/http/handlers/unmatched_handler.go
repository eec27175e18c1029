package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-desk/internal/api/dto"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/service"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// UnmatchedHandler serves the staff triage queue.
type UnmatchedHandler struct {
	service *service.UnmatchedService
}

// NewUnmatchedHandler constructs handler.
func NewUnmatchedHandler(unmatchedService *service.UnmatchedService) *UnmatchedHandler {
	return &UnmatchedHandler{service: unmatchedService}
}

// List GET /unmatched.
func (h *UnmatchedHandler) List(c *fiber.Ctx) error {
	var status *domain.UnmatchedStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.UnmatchedStatus(strings.ToUpper(strings.TrimSpace(raw)))
		switch s {
		case domain.UnmatchedStatusPending, domain.UnmatchedStatusResolved, domain.UnmatchedStatusIgnored:
			status = &s
		default:
			return apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
	}
	pageSize := parseInt(c.Query("page_size"), 20)
	offset := (parseInt(c.Query("page"), 1) - 1) * pageSize

	items, err := h.service.ListUnmatched(c.UserContext(), status, pageSize, offset)
	if err != nil {
		return err
	}
	out := make([]dto.UnmatchedResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewUnmatchedResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// Get GET /unmatched/:id.
func (h *UnmatchedHandler) Get(c *fiber.Ctx) error {
	item, err := h.service.GetUnmatched(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUnmatchedResponse(item)})
}

// Resolve POST /unmatched/:id/resolve.
func (h *UnmatchedHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveUnmatchedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ResolveUnmatched(c.UserContext(), c.Params("id"), service.ResolveUnmatchedInput{
		RequestTypeID: req.RequestTypeID,
		DepartmentID:  req.DepartmentID,
		Priority:      domain.TicketPriority(req.Priority),
		ResolvedBy:    req.ResolvedBy,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Ignore POST /unmatched/:id/ignore.
func (h *UnmatchedHandler) Ignore(c *fiber.Ctx) error {
	var req dto.IgnoreUnmatchedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	item, err := h.service.IgnoreUnmatched(c.UserContext(), c.Params("id"), req.ResolvedBy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUnmatchedResponse(item)})
}
