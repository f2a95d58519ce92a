package events

import (
	"time"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
	EventTicketReassigned    EventType = "ticket_reassigned"
)

// Event represents a lifecycle side effect emitted by services. The
// notification worker turns these into persisted notices.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title         string            `json:"title"`
	Department    domain.Department `json:"department"`
	SubmitterName string            `json:"submitter_name"`
	IsGuest       bool              `json:"is_guest"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Title     string              `json:"title"`
	StudentID *string             `json:"student_id,omitempty"`
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	ChangedBy string              `json:"changed_by"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	Title       string  `json:"title"`
	StudentID   *string `json:"student_id,omitempty"`
	CommentBy   string  `json:"comment_by"`
	BodyPreview string  `json:"body_preview"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	Title         string            `json:"title"`
	StudentID     *string           `json:"student_id,omitempty"`
	SubmitterName string            `json:"submitter_name"`
	OldDepartment domain.Department `json:"old_department"`
	NewDepartment domain.Department `json:"new_department"`
}
