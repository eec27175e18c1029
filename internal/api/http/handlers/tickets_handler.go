package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/service-desk/internal/api/dto"
	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/service"
	apperrors "github.com/spec-kit/service-desk/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), service.TicketCreateInput{
		RequestTypeID: req.RequestTypeID,
		DepartmentID:  req.DepartmentID,
		Priority:      domain.TicketPriority(req.Priority),
		Source:        domain.TicketSourceManual,
		Notes:         req.Notes,
		ContactID:     req.ContactID,
		GuestID:       req.GuestID,
		RoomNumber:    req.RoomNumber,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	pageSize := parseInt(c.Query("page_size"), 50)
	offset := (parseInt(c.Query("page"), 1) - 1) * pageSize
	entries, err := h.service.History(c.UserContext(), c.Params("id"), pageSize, offset)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for i := range entries {
		items = append(items, dto.NewTicketHistoryResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Accept POST /tickets/:id/accept.
func (h *TicketsHandler) Accept(c *fiber.Ctx) error {
	var req dto.AcceptTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return h.respond(c)(h.service.AssignAndAccept(c.UserContext(), c.Params("id"), req.AssigneeID))
}

// Start POST /tickets/:id/start.
func (h *TicketsHandler) Start(c *fiber.Ctx) error {
	return h.respond(c)(h.service.StartWork(c.UserContext(), c.Params("id")))
}

// Complete POST /tickets/:id/complete.
func (h *TicketsHandler) Complete(c *fiber.Ctx) error {
	var req dto.CompleteTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	return h.respond(c)(h.service.Complete(c.UserContext(), c.Params("id"), req.ResolutionNotes))
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	return h.respond(c)(h.service.Close(c.UserContext(), c.Params("id")))
}

// Escalate POST /tickets/:id/escalate.
func (h *TicketsHandler) Escalate(c *fiber.Ctx) error {
	reason, err := parseReason(c)
	if err != nil {
		return err
	}
	return h.respond(c)(h.service.Escalate(c.UserContext(), c.Params("id"), reason))
}

// Reject POST /tickets/:id/reject.
func (h *TicketsHandler) Reject(c *fiber.Ctx) error {
	reason, err := parseReason(c)
	if err != nil {
		return err
	}
	return h.respond(c)(h.service.Reject(c.UserContext(), c.Params("id"), reason))
}

func (h *TicketsHandler) respond(c *fiber.Ctx) func(*domain.Ticket, error) error {
	return func(ticket *domain.Ticket, err error) error {
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
	}
}

func parseReason(c *fiber.Ctx) (*string, error) {
	if len(c.Body()) == 0 {
		return nil, nil
	}
	var req dto.ReasonRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	return req.Reason, nil
}

func parseTicketFilter(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			status, ok := domain.ParseStatus(part)
			if !ok {
				return filter, apperrors.NewValidationError("unknown status", map[string]any{"status": part})
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	var err error
	if filter.DepartmentID, err = queryInt64(c, "department_id"); err != nil {
		return filter, err
	}
	if filter.RequestTypeID, err = queryInt64(c, "request_type_id"); err != nil {
		return filter, err
	}
	if v := c.Query("assignee_id"); v != "" {
		filter.AssigneeID = &v
	}
	if v := c.Query("contact_id"); v != "" {
		filter.ContactID = &v
	}
	if v := c.Query("breached"); v != "" {
		breached, err := strconv.ParseBool(v)
		if err != nil {
			return filter, apperrors.NewValidationError("breached must be a boolean", nil)
		}
		filter.Breached = &breached
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter, nil
}

func queryInt64(c *fiber.Ctx, key string) (*int64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.NewValidationError(key+" must be an integer", nil)
	}
	return &v, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
