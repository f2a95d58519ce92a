package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-helpdesk/internal/api/dto"
	"github.com/spec-kit/campus-helpdesk/internal/auth"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/service"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if principal.User.Role != domain.RoleStudent {
		return apperrors.NewForbidden("only students file tickets")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.Create(c.Context(), principal.User, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Department:  req.Department,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// CreateGuest POST /tickets/guest. Public.
func (h *TicketsHandler) CreateGuest(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ticket, err := h.service.CreateGuest(c.Context(), service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
		Department:  req.Department,
		Priority:    req.Priority,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"tracking_code": ticket.TrackingCode,
		"ticket":        ticketResponse(ticket),
	}})
}

// Track GET /tickets/track/:code. Public, no submitter identity.
func (h *TicketsHandler) Track(c *fiber.Ctx) error {
	ticket, err := h.service.Track(c.Context(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": trackResponse(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var statuses []domain.TicketStatus
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			statuses = append(statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)

	tickets, err := h.service.List(c.Context(), actor, statuses, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Get(c.Context(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Update PATCH /tickets/:id. Status and priority changes.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == nil && req.Priority == nil {
		return apperrors.NewValidationError("status or priority required", nil)
	}

	var ticket *domain.Ticket
	if req.Status != nil {
		ticket, err = h.service.SetStatus(c.Context(), actor, c.Params("id"), *req.Status)
		if err != nil {
			return err
		}
	}
	if req.Priority != nil {
		ticket, err = h.service.SetPriority(c.Context(), actor, c.Params("id"), *req.Priority)
		if err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Reassign POST /tickets/:id/reassign. Admin only.
func (h *TicketsHandler) Reassign(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ReassignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.Reassign(c.Context(), actor, c.Params("id"), req.Department)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AddComment(c.Context(), actor, c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Delete DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Analytics GET /analytics.
func (h *TicketsHandler) Analytics(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	counts, err := h.service.Analytics(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AnalyticsResponse{
		Total:      counts.Total,
		Pending:    counts.Pending,
		InProgress: counts.InProgress,
		Resolved:   counts.Resolved,
		Closed:     counts.Closed,
	}})
}

func actorFromContext(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return service.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return service.Actor{
		UserID:     principal.User.ID,
		Name:       principal.User.Name,
		Role:       principal.User.Role,
		Department: principal.User.Department,
	}, nil
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

func commentResponses(comments []domain.Comment) []dto.CommentResponse {
	out := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, dto.CommentResponse{
			Text:      comment.Text,
			By:        comment.By,
			Role:      comment.Role,
			CreatedAt: comment.CreatedAt,
		})
	}
	return out
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:                  ticket.ID,
		Title:               ticket.Title,
		Description:         ticket.Description,
		Department:          ticket.Department,
		StudentName:         ticket.StudentName,
		StudentEmail:        ticket.StudentEmail,
		IsGuest:             ticket.IsGuest,
		TrackingCode:        ticket.TrackingCode,
		Status:              ticket.Status,
		Priority:            ticket.Priority,
		Suggestion:          ticket.Suggestion,
		SuggestedDepartment: ticket.SuggestedDepartment,
		Comments:            commentResponses(ticket.Comments),
		ResolvedAt:          ticket.ResolvedAt,
		ClosedAt:            ticket.ClosedAt,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
	}
}

func trackResponse(ticket *domain.Ticket) dto.TrackResponse {
	code := ""
	if ticket.TrackingCode != nil {
		code = *ticket.TrackingCode
	}
	return dto.TrackResponse{
		TrackingCode: code,
		Title:        ticket.Title,
		Description:  ticket.Description,
		Department:   ticket.Department,
		Status:       ticket.Status,
		Priority:     ticket.Priority,
		Comments:     commentResponses(ticket.Comments),
		CreatedAt:    ticket.CreatedAt,
		UpdatedAt:    ticket.UpdatedAt,
	}
}
