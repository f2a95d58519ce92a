package dto

import (
	"time"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// CreateNoticeRequest is an admin broadcast.
type CreateNoticeRequest struct {
	Audience   domain.Audience    `json:"audience"`
	Title      string             `json:"title"`
	Message    string             `json:"message"`
	TicketID   *string            `json:"ticket_id"`
	Department *domain.Department `json:"department"`
}

// NotificationResponse is one notice row.
type NotificationResponse struct {
	ID         string                  `json:"id"`
	TicketID   *string                 `json:"ticket_id,omitempty"`
	Type       domain.NotificationType `json:"type"`
	Audience   domain.Audience         `json:"audience"`
	Department *domain.Department      `json:"department,omitempty"`
	Title      string                  `json:"title"`
	Message    string                  `json:"message"`
	CreatedAt  time.Time               `json:"created_at"`
}
