package dto

import (
	"time"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// CreateTicketRequest payload, shared by student and guest creation.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Department  domain.Department     `json:"department"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateTicketRequest carries a status and/or priority change.
type UpdateTicketRequest struct {
	Status   *domain.TicketStatus   `json:"status"`
	Priority *domain.TicketPriority `json:"priority"`
}

// ReassignTicketRequest moves a ticket to another department.
type ReassignTicketRequest struct {
	Department domain.Department `json:"department"`
}

// CommentRequest appends to the ticket thread.
type CommentRequest struct {
	Text string `json:"text"`
}

// CommentResponse is one thread entry.
type CommentResponse struct {
	Text      string      `json:"text"`
	By        string      `json:"by"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

// TicketResponse is the full ticket view for authenticated callers.
type TicketResponse struct {
	ID                  string                `json:"id"`
	Title               string                `json:"title"`
	Description         string                `json:"description"`
	Department          domain.Department     `json:"department"`
	StudentName         string                `json:"student_name,omitempty"`
	StudentEmail        string                `json:"student_email,omitempty"`
	IsGuest             bool                  `json:"is_guest"`
	TrackingCode        *string               `json:"tracking_code,omitempty"`
	Status              domain.TicketStatus   `json:"status"`
	Priority            domain.TicketPriority `json:"priority"`
	Suggestion          string                `json:"suggestion,omitempty"`
	SuggestedDepartment domain.Department     `json:"suggested_department,omitempty"`
	Comments            []CommentResponse     `json:"comments"`
	ResolvedAt          *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt            *time.Time            `json:"closed_at,omitempty"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// TrackResponse is the public projection returned for tracking-code
// lookups. It carries no submitter identity.
type TrackResponse struct {
	TrackingCode string                `json:"tracking_code"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Department   domain.Department     `json:"department"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	Comments     []CommentResponse     `json:"comments"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// AnalyticsResponse tallies tickets per workflow state.
type AnalyticsResponse struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Resolved   int64 `json:"resolved"`
	Closed     int64 `json:"closed"`
}
