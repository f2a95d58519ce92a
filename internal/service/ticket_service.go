package service

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/policy"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
	"github.com/spec-kit/campus-helpdesk/internal/suggest"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

const (
	trackingPrefix     = "GUEST-"
	trackingCodeLength = 6
	trackingAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxTrackingAttempts bounds collision retries; with a 36^6
	// keyspace a second collision in a row is already implausible.
	maxTrackingAttempts = 5

	commentPreviewLength = 100
)

// Actor is the verified caller of a ticket operation, with the display
// name used for comment snapshots.
type Actor struct {
	UserID     string
	Name       string
	Role       domain.Role
	Department domain.Department
}

func (a Actor) policyActor() policy.Actor {
	return policy.Actor{UserID: a.UserID, Role: a.Role, Department: a.Department}
}

// TicketService coordinates the ticket lifecycle. Every mutation runs
// its policy check before touching the store and publishes its side
// effects as events for the notification worker.
type TicketService struct {
	tickets    repository.TicketRepository
	oracle     suggest.Oracle
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Oracle     suggest.Oracle
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		oracle:     deps.Oracle,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Department  domain.Department
	Priority    domain.TicketPriority
}

func (in *TicketCreateInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" || in.Description == "" {
		return apperrors.NewValidationError("title and description are required", nil)
	}
	if !in.Department.Valid() {
		return apperrors.NewValidationError("unknown department", map[string]any{"department": in.Department})
	}
	if in.Priority == "" {
		in.Priority = domain.TicketPriorityMedium
	}
	if !in.Priority.Valid() {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": in.Priority})
	}
	return nil
}

// Create files a ticket for a registered student, snapshotting their
// name and email at creation time.
func (s *TicketService) Create(ctx context.Context, student *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	studentID := student.ID
	ticket := &domain.Ticket{
		Title:        input.Title,
		Description:  input.Description,
		Department:   input.Department,
		StudentID:    &studentID,
		StudentName:  student.Name,
		StudentEmail: student.Email,
		Status:       domain.TicketStatusPending,
		Priority:     input.Priority,
		Comments:     []domain.Comment{},
	}
	s.attachSuggestion(ctx, ticket)

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishCreated(ctx, ticket)
	return ticket, nil
}

// CreateGuest files an anonymous ticket. No submitter identity is
// captured; the returned ticket carries the generated tracking code.
func (s *TicketService) CreateGuest(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       input.Title,
		Description: input.Description,
		Department:  input.Department,
		IsGuest:     true,
		Status:      domain.TicketStatusPending,
		Priority:    input.Priority,
		Comments:    []domain.Comment{},
	}
	s.attachSuggestion(ctx, ticket)

	for attempt := 0; attempt < maxTrackingAttempts; attempt++ {
		code, err := generateTrackingCode()
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		ticket.TrackingCode = &code

		err = s.tickets.Create(ctx, ticket)
		if err == nil {
			s.publishCreated(ctx, ticket)
			return ticket, nil
		}
		if err != repository.ErrTrackingCodeTaken {
			return nil, apperrors.MapError(err)
		}
		s.logger.Warn("tracking code collision, retrying", zap.String("code", code))
	}
	return nil, apperrors.NewInternalError(repository.ErrTrackingCodeTaken)
}

// Track is the public, unauthenticated lookup by tracking code. Codes
// compare case-insensitively.
func (s *TicketService) Track(ctx context.Context, code string) (*domain.Ticket, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperrors.NewValidationError("tracking code required", nil)
	}
	ticket, err := s.tickets.GetByTrackingCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"tracking_code": code})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// Get fetches a single ticket, enforcing view access.
func (s *TicketService) Get(ctx context.Context, actor Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor.policyActor(), ticket) {
		return nil, apperrors.NewForbidden("not allowed")
	}
	return ticket, nil
}

// List returns tickets scoped to the actor: students see their own,
// department staff their department, admins everything.
func (s *TicketService) List(ctx context.Context, actor Actor, statuses []domain.TicketStatus, limit, offset int) ([]domain.Ticket, error) {
	scope := policy.ScopeFor(actor.policyActor())
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		StudentID:  scope.StudentID,
		Department: scope.Department,
		Statuses:   statuses,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// SetStatus moves a ticket to any of the four workflow states. Entering
// Resolved stamps resolvedAt with the current time, overwriting any
// earlier stamp; entering Closed stamps closedAt likewise.
func (s *TicketService) SetStatus(ctx context.Context, actor Actor, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": newStatus})
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanSetStatus(actor.policyActor(), ticket) {
		return nil, apperrors.NewForbidden("not allowed")
	}

	oldStatus := ticket.Status
	ticket.Status = newStatus
	switch newStatus {
	case domain.TicketStatusResolved:
		now := s.now()
		ticket.ResolvedAt = &now
	case domain.TicketStatusClosed:
		now := s.now()
		ticket.ClosedAt = &now
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			Title:     ticket.Title,
			StudentID: ticket.StudentID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			ChangedBy: actor.Name,
		},
	})
	return ticket, nil
}

// SetPriority changes triage priority. No notification is produced.
func (s *TicketService) SetPriority(ctx context.Context, actor Actor, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanSetPriority(actor.policyActor(), ticket) {
		return nil, apperrors.NewForbidden("not allowed")
	}

	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// Reassign moves a ticket to another department and puts it back at the
// start of that department's triage queue: status returns to Pending
// and the resolution stamps are cleared.
func (s *TicketService) Reassign(ctx context.Context, actor Actor, ticketID string, newDepartment domain.Department) (*domain.Ticket, error) {
	if !policy.CanReassign(actor.policyActor()) {
		return nil, apperrors.NewForbidden("not allowed")
	}
	if !newDepartment.Valid() {
		return nil, apperrors.NewValidationError("unknown department", map[string]any{"department": newDepartment})
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	oldDepartment := ticket.Department
	ticket.Department = newDepartment
	ticket.Status = domain.TicketStatusPending
	ticket.ResolvedAt = nil
	ticket.ClosedAt = nil

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketReassigned,
		TicketID: ticket.ID,
		Payload: events.TicketReassignedPayload{
			Title:         ticket.Title,
			StudentID:     ticket.StudentID,
			SubmitterName: ticket.StudentName,
			OldDepartment: oldDepartment,
			NewDepartment: newDepartment,
		},
	})
	return ticket, nil
}

// AddComment appends to the ticket thread, snapshotting the author's
// display name and role at write time.
func (s *TicketService) AddComment(ctx context.Context, actor Actor, ticketID, text string) (*domain.Ticket, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text required", nil)
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !policy.CanComment(actor.policyActor(), ticket) {
		return nil, apperrors.NewForbidden("not allowed")
	}

	ticket.Comments = append(ticket.Comments, domain.Comment{
		Text:      text,
		By:        actor.Name,
		Role:      actor.Role,
		CreatedAt: s.now(),
	})
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Payload: events.TicketCommentAddedPayload{
			Title:       ticket.Title,
			StudentID:   ticket.StudentID,
			CommentBy:   actor.Name,
			BodyPreview: preview(text, commentPreviewLength),
		},
	})
	return ticket, nil
}

// Delete removes a ticket permanently. No tombstone is kept.
func (s *TicketService) Delete(ctx context.Context, actor Actor, ticketID string) error {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if !policy.CanDelete(actor.policyActor(), ticket) {
		return apperrors.NewForbidden("not allowed")
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// Analytics tallies tickets per status within the actor's list scope.
func (s *TicketService) Analytics(ctx context.Context, actor Actor) (repository.StatusCounts, error) {
	scope := policy.ScopeFor(actor.policyActor())
	counts, err := s.tickets.CountByStatus(ctx, repository.TicketFilter{
		StudentID:  scope.StudentID,
		Department: scope.Department,
	})
	if err != nil {
		return repository.StatusCounts{}, apperrors.MapError(err)
	}
	return counts, nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// attachSuggestion consults the oracle for an initial suggestion. The
// oracle is strictly an enrichment: on any failure the static fallback
// is recorded and the submitter-chosen department stands.
func (s *TicketService) attachSuggestion(ctx context.Context, ticket *domain.Ticket) {
	if s.oracle == nil {
		return
	}
	answer, err := s.oracle.Classify(ctx, ticket.Description)
	if err != nil {
		s.logger.Warn("suggestion oracle unavailable", zap.Error(err))
		answer = suggest.Fallback
	}
	ticket.Suggestion = answer.Suggestion
	ticket.SuggestedDepartment = answer.Department
}

func (s *TicketService) publishCreated(ctx context.Context, ticket *domain.Ticket) {
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Title:         ticket.Title,
			Department:    ticket.Department,
			SubmitterName: submitterName(ticket),
			IsGuest:       ticket.IsGuest,
		},
	})
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func submitterName(ticket *domain.Ticket) string {
	if ticket.IsGuest {
		return "a guest"
	}
	return ticket.StudentName
}

func generateTrackingCode() (string, error) {
	buf := make([]byte, trackingCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = trackingAlphabet[int(b)%len(trackingAlphabet)]
	}
	return trackingPrefix + string(buf), nil
}

func preview(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
