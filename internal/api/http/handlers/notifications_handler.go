package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campus-helpdesk/internal/api/dto"
	"github.com/spec-kit/campus-helpdesk/internal/auth"
	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/notify"
	"github.com/spec-kit/campus-helpdesk/internal/service"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// NotificationsHandler manages the notification surface.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	viewer, err := viewerFromContext(c)
	if err != nil {
		return err
	}
	limit := parseInt(c.Query("limit"), 50)

	rows, err := h.service.ListForViewer(c.Context(), viewer, limit)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(rows))
	for i := range rows {
		items = append(items, notificationResponse(&rows[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Create POST /notifications. Admin only.
func (h *NotificationsHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateNoticeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	notice, err := h.service.CreateNotice(c.Context(), actor, service.NoticeInput{
		Audience:   req.Audience,
		Title:      req.Title,
		Message:    req.Message,
		TicketID:   req.TicketID,
		Department: req.Department,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": notificationResponse(notice)})
}

// Dismiss DELETE /notifications/:id. Removes the row for all viewers.
func (h *NotificationsHandler) Dismiss(c *fiber.Ctx) error {
	viewer, err := viewerFromContext(c)
	if err != nil {
		return err
	}
	if err := h.service.Dismiss(c.Context(), viewer, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func viewerFromContext(c *fiber.Ctx) (notify.Viewer, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return notify.Viewer{}, apperrors.NewUnauthorized("authentication required")
	}
	return notify.Viewer{
		UserID:     principal.User.ID,
		Role:       principal.User.Role,
		Department: principal.User.Department,
	}, nil
}

func notificationResponse(n *domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:         n.ID,
		TicketID:   n.TicketID,
		Type:       n.Type,
		Audience:   n.Audience,
		Department: n.Department,
		Title:      n.Title,
		Message:    n.Message,
		CreatedAt:  n.CreatedAt,
	}
}
