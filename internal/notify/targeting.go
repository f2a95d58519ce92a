// Package notify decides who sees a notification: creation-time
// audience validation and read-time visibility. Both are pure functions
// over the notification row and the viewer's verified identity.
package notify

import (
	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// Viewer is the identity a notification list is filtered for.
type Viewer struct {
	UserID     string
	Role       domain.Role
	Department domain.Department
}

// VisibleTo reports whether the viewer may see the notification.
// Admins see everything; for other roles a row is visible when any of
// the audience rules match:
//   - it targets the viewer's user id directly,
//   - its audience is "both",
//   - the viewer is a student and it is an untargeted student broadcast,
//   - the viewer is department staff, the audience is "department", and
//     the department filter is absent or equals the viewer's unit.
func VisibleTo(viewer Viewer, n *domain.Notification) bool {
	if viewer.Role == domain.RoleAdmin {
		return true
	}
	if n.UserID != nil && *n.UserID == viewer.UserID {
		return true
	}
	if n.Audience == domain.AudienceBoth {
		return true
	}
	if viewer.Role == domain.RoleStudent && n.Audience == domain.AudienceStudent && n.UserID == nil {
		return true
	}
	if viewer.Role == domain.RoleDepartment && n.Audience == domain.AudienceDepartment {
		return n.Department == nil || *n.Department == viewer.Department
	}
	return false
}

// Filter returns the notifications visible to the viewer, preserving
// input order.
func Filter(viewer Viewer, notifications []domain.Notification) []domain.Notification {
	visible := make([]domain.Notification, 0, len(notifications))
	for i := range notifications {
		if VisibleTo(viewer, &notifications[i]) {
			visible = append(visible, notifications[i])
		}
	}
	return visible
}
