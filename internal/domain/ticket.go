package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets. The set is
// ordered for display, but transitions between any two states are
// allowed so staff can reopen or fast-track tickets.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusClosed     TicketStatus = "Closed"
)

// Valid reports whether the status is one of the four workflow states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates triage urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// Valid reports whether the priority is one of the closed set.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// Comment is an entry in a ticket's append-only discussion thread. The
// author's display name and role are snapshots taken at write time, so
// the thread reflects who the author was when they wrote it.
type Comment struct {
	Text      string    `json:"text"`
	By        string    `json:"by"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Ticket is the aggregate for helpdesk requests. Exactly one of
// StudentID or (IsGuest, TrackingCode) identifies the submitter.
type Ticket struct {
	ID                  string
	Title               string
	Description         string
	Department          Department
	StudentID           *string
	StudentName         string
	StudentEmail        string
	IsGuest             bool
	TrackingCode        *string
	Status              TicketStatus
	Priority            TicketPriority
	Suggestion          string
	SuggestedDepartment Department
	Comments            []Comment
	ResolvedAt          *time.Time
	ClosedAt            *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
