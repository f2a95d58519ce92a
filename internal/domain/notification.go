package domain

import "time"

// Audience classifies who a notification is meant for, independent of
// the optional department filter.
type Audience string

const (
	AudienceStudent    Audience = "student"
	AudienceDepartment Audience = "department"
	AudienceBoth       Audience = "both"
)

// Valid reports whether the audience is one of the closed set.
func (a Audience) Valid() bool {
	switch a {
	case AudienceStudent, AudienceDepartment, AudienceBoth:
		return true
	}
	return false
}

// NotificationType records why a notification was produced.
type NotificationType string

const (
	NotificationTicketCreated    NotificationType = "ticket_created"
	NotificationStatusChanged    NotificationType = "status_changed"
	NotificationCommentAdded     NotificationType = "comment_added"
	NotificationTicketReassigned NotificationType = "ticket_reassigned"
	NotificationCustom           NotificationType = "custom"
)

// Bounds on user-visible notification text.
const (
	NotificationTitleMaxLen   = 200
	NotificationMessageMaxLen = 500
)

// Notification is a notice row delivered to one user or to an audience.
// UserID targets a specific account; Department narrows department and
// both audiences to one unit (nil means every department). Dismissal is
// a hard delete of the row, shared by all viewers who could see it.
type Notification struct {
	ID         string
	UserID     *string
	TicketID   *string
	Type       NotificationType
	Audience   Audience
	Department *Department
	Title      string
	Message    string
	CreatedAt  time.Time
}
