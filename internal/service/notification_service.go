package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/notify"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

// NotificationService materializes lifecycle events into persisted
// notices and serves the per-viewer notification surface. Fan-out to
// department members is best effort: a failed row is logged and the
// rest of the batch continues.
type NotificationService struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	tickets       repository.TicketRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	NotificationRepo repository.NotificationRepository
	UserRepo         repository.UserRepository
	TicketRepo       repository.TicketRepository
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		notifications: deps.NotificationRepo,
		users:         deps.UserRepo,
		tickets:       deps.TicketRepo,
		dispatcher:    deps.Dispatcher,
		logger:        deps.Logger,
	}
}

// RegisterHandlers subscribes to lifecycle events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleCommentAdded)
	n.dispatcher.Subscribe(events.EventTicketReassigned, n.handleReassigned)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	message := fmt.Sprintf("New ticket %q from %s", payload.Title, payload.SubmitterName)
	n.fanOutToDepartment(ctx, payload.Department, event.TicketID,
		domain.NotificationTicketCreated, "New Ticket Assigned", message)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok || payload.StudentID == nil {
		// Guest tickets have no account to notify.
		return nil
	}
	message := fmt.Sprintf("Your ticket %q status changed to %s by %s",
		payload.Title, payload.NewStatus, payload.ChangedBy)
	n.deliver(ctx, &domain.Notification{
		UserID:   payload.StudentID,
		TicketID: &event.TicketID,
		Type:     domain.NotificationStatusChanged,
		Audience: domain.AudienceStudent,
		Title:    "Ticket Status Updated",
		Message:  message,
	})
	return nil
}

func (n *NotificationService) handleCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok || payload.StudentID == nil {
		return nil
	}
	message := fmt.Sprintf("%s commented: %q", payload.CommentBy, payload.BodyPreview)
	n.deliver(ctx, &domain.Notification{
		UserID:   payload.StudentID,
		TicketID: &event.TicketID,
		Type:     domain.NotificationCommentAdded,
		Audience: domain.AudienceStudent,
		Title:    "New Comment on Your Ticket",
		Message:  message,
	})
	return nil
}

func (n *NotificationService) handleReassigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketReassignedPayload)
	if !ok {
		return nil
	}
	if payload.StudentID != nil {
		message := fmt.Sprintf("Your ticket %q was reassigned from %s to %s",
			payload.Title, payload.OldDepartment, payload.NewDepartment)
		n.deliver(ctx, &domain.Notification{
			UserID:   payload.StudentID,
			TicketID: &event.TicketID,
			Type:     domain.NotificationTicketReassigned,
			Audience: domain.AudienceStudent,
			Title:    "Ticket Reassigned",
			Message:  message,
		})
	}

	message := fmt.Sprintf("Ticket %q from %s reassigned to %s",
		payload.Title, payload.SubmitterName, payload.NewDepartment)
	n.fanOutToDepartment(ctx, payload.NewDepartment, event.TicketID,
		domain.NotificationTicketReassigned, "Ticket Reassigned to Your Department", message)
	return nil
}

// fanOutToDepartment creates one personal notice per member of the
// department. Partial failure is acceptable and logged.
func (n *NotificationService) fanOutToDepartment(ctx context.Context, dept domain.Department, ticketID string, typ domain.NotificationType, title, message string) {
	members, err := n.users.ListByDepartment(ctx, dept)
	if err != nil {
		n.logger.Error("department fan-out aborted", zap.String("department", string(dept)), zap.Error(err))
		return
	}
	delivered := 0
	for i := range members {
		userID := members[i].ID
		notice := &domain.Notification{
			UserID:   &userID,
			TicketID: &ticketID,
			Type:     typ,
			Audience: domain.AudienceStudent,
			Title:    title,
			Message:  message,
		}
		if err := n.notifications.Create(ctx, notice); err != nil {
			n.logger.Error("fan-out row failed", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		delivered++
	}
	n.logger.Info("department members notified",
		zap.String("department", string(dept)),
		zap.Int("delivered", delivered),
		zap.Int("members", len(members)))
}

func (n *NotificationService) deliver(ctx context.Context, notice *domain.Notification) {
	if err := n.notifications.Create(ctx, notice); err != nil {
		n.logger.Error("notification delivery failed",
			zap.String("type", string(notice.Type)), zap.Error(err))
	}
}

// NoticeInput is an admin-authored broadcast.
type NoticeInput struct {
	Audience   domain.Audience
	Title      string
	Message    string
	TicketID   *string
	Department *domain.Department
}

// CreateNotice publishes an admin notice. Recipient resolution happens
// once, at creation time: a student-audience notice resolves to the
// referenced ticket's registered submitter; department and both
// audiences stay audience-addressed with the optional department
// filter.
func (n *NotificationService) CreateNotice(ctx context.Context, actor Actor, input NoticeInput) (*domain.Notification, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("not allowed")
	}
	if input.Audience == "" {
		input.Audience = domain.AudienceStudent
	}
	if !input.Audience.Valid() {
		return nil, apperrors.NewValidationError("unknown audience", map[string]any{"audience": input.Audience})
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Message = strings.TrimSpace(input.Message)
	if input.Title == "" || input.Message == "" {
		return nil, apperrors.NewValidationError("title and message are required", nil)
	}
	if len(input.Title) > domain.NotificationTitleMaxLen {
		return nil, apperrors.NewValidationError("title too long", map[string]any{"max": domain.NotificationTitleMaxLen})
	}
	if len(input.Message) > domain.NotificationMessageMaxLen {
		return nil, apperrors.NewValidationError("message too long", map[string]any{"max": domain.NotificationMessageMaxLen})
	}
	if input.Department != nil && !input.Department.Valid() {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": *input.Department})
	}

	notice := &domain.Notification{
		TicketID:   input.TicketID,
		Type:       domain.NotificationCustom,
		Audience:   input.Audience,
		Department: input.Department,
		Title:      input.Title,
		Message:    input.Message,
	}

	if input.Audience == domain.AudienceStudent {
		if input.TicketID == nil {
			return nil, apperrors.NewValidationError("student notices require a ticket", nil)
		}
		ticket, err := n.tickets.GetByID(ctx, *input.TicketID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": *input.TicketID})
			}
			return nil, apperrors.MapError(err)
		}
		if ticket.StudentID == nil {
			return nil, apperrors.NewValidationError("ticket has no registered submitter to notify", nil)
		}
		notice.UserID = ticket.StudentID
	}

	if err := n.notifications.Create(ctx, notice); err != nil {
		return nil, apperrors.MapError(err)
	}
	return notice, nil
}

// ListForViewer returns the notices visible to the viewer, newest
// first. Admins see the unfiltered set.
func (n *NotificationService) ListForViewer(ctx context.Context, viewer notify.Viewer, limit int) ([]domain.Notification, error) {
	rows, err := n.notifications.List(ctx, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if viewer.Role == domain.RoleAdmin {
		return rows, nil
	}
	return notify.Filter(viewer, rows), nil
}

// Dismiss deletes a notice for everyone. Any viewer who can currently
// see the notice may dismiss it; the shared-row delete is a documented
// limitation of the design, not per-viewer read state.
func (n *NotificationService) Dismiss(ctx context.Context, viewer notify.Viewer, id string) error {
	notice, err := n.notifications.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewNotFound("notification", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	if !notify.VisibleTo(viewer, notice) {
		return apperrors.NewForbidden("not allowed")
	}
	if err := n.notifications.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
