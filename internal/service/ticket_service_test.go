package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/events"
	"github.com/spec-kit/campus-helpdesk/internal/suggest"
	apperrors "github.com/spec-kit/campus-helpdesk/pkg/util"
)

type stubOracle struct {
	answer suggest.Suggestion
	err    error
}

func (o *stubOracle) Classify(ctx context.Context, description string) (suggest.Suggestion, error) {
	return o.answer, o.err
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) byType(t events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []events.Event
	for _, e := range d.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newTicketService(repo *fakeTicketRepo, oracle suggest.Oracle, dispatcher events.Dispatcher) *TicketService {
	return NewTicketService(TicketDependencies{
		TicketRepo: repo,
		Oracle:     oracle,
		Dispatcher: dispatcher,
		Logger:     zap.NewNop(),
	})
}

func studentActor(id string) Actor {
	return Actor{UserID: id, Name: "Asha Nair", Role: domain.RoleStudent}
}

func deptActor(dept domain.Department) Actor {
	return Actor{UserID: "staff-1", Name: "IT Desk", Role: domain.RoleDepartment, Department: dept}
}

func adminActor() Actor {
	return Actor{UserID: "admin-1", Name: "Admin", Role: domain.RoleAdmin}
}

func registeredStudent() *domain.User {
	return &domain.User{
		ID:    "student-1",
		Name:  "Asha Nair",
		Email: "asha.mca25@mespune.in",
		Role:  domain.RoleStudent,
	}
}

func createStudentTicket(t *testing.T, svc *TicketService) *domain.Ticket {
	t.Helper()
	ticket, err := svc.Create(context.Background(), registeredStudent(), TicketCreateInput{
		Title:       "WiFi down in hostel block B",
		Description: "No connectivity since last night.",
		Department:  domain.DepartmentIT,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ticket
}

func TestCreateDefaultsAndValidation(t *testing.T) {
	svc := newTicketService(newFakeTicketRepo(), nil, nil)

	ticket := createStudentTicket(t, svc)
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("default priority = %q, want Medium", ticket.Priority)
	}
	if ticket.Status != domain.TicketStatusPending {
		t.Errorf("initial status = %q, want Pending", ticket.Status)
	}
	if ticket.StudentID == nil || *ticket.StudentID != "student-1" {
		t.Errorf("StudentID = %v, want student-1", ticket.StudentID)
	}
	if ticket.StudentName != "Asha Nair" || ticket.StudentEmail != "asha.mca25@mespune.in" {
		t.Errorf("submitter snapshot = %q %q", ticket.StudentName, ticket.StudentEmail)
	}

	bad := []TicketCreateInput{
		{Title: "", Description: "d", Department: domain.DepartmentIT},
		{Title: "t", Description: "   ", Department: domain.DepartmentIT},
		{Title: "t", Description: "d", Department: "Finance"},
		{Title: "t", Description: "d", Department: domain.DepartmentIT, Priority: "Urgent"},
	}
	for i, input := range bad {
		if _, err := svc.Create(context.Background(), registeredStudent(), input); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestGuestTrackRoundTrip(t *testing.T) {
	svc := newTicketService(newFakeTicketRepo(), nil, nil)

	ticket, err := svc.CreateGuest(context.Background(), TicketCreateInput{
		Title:       "Projector broken",
		Description: "Room 204 projector does not power on.",
		Department:  domain.DepartmentIT,
	})
	if err != nil {
		t.Fatalf("CreateGuest: %v", err)
	}
	if !ticket.IsGuest {
		t.Fatal("guest ticket not flagged IsGuest")
	}
	if ticket.StudentID != nil || ticket.StudentName != "" || ticket.StudentEmail != "" {
		t.Error("guest ticket captured submitter identity")
	}
	code := *ticket.TrackingCode
	if !strings.HasPrefix(code, "GUEST-") || len(code) != len("GUEST-")+6 {
		t.Fatalf("tracking code %q has wrong shape", code)
	}

	// Lookup is case-insensitive.
	got, err := svc.Track(context.Background(), strings.ToLower(code))
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if got.ID != ticket.ID {
		t.Errorf("Track returned ticket %s, want %s", got.ID, ticket.ID)
	}

	if _, err := svc.Track(context.Background(), "GUEST-ZZZZZZ"); err == nil {
		t.Error("expected not found for unknown code")
	}
}

func TestGuestTrackingCodeCollisionRetry(t *testing.T) {
	repo := newFakeTicketRepo()
	repo.collide = 2
	svc := newTicketService(repo, nil, nil)

	ticket, err := svc.CreateGuest(context.Background(), TicketCreateInput{
		Title:       "t",
		Description: "d",
		Department:  domain.DepartmentLibrary,
	})
	if err != nil {
		t.Fatalf("CreateGuest after collisions: %v", err)
	}
	if ticket.TrackingCode == nil {
		t.Fatal("no tracking code after retry")
	}

	repo.collide = 100
	if _, err := svc.CreateGuest(context.Background(), TicketCreateInput{
		Title:       "t",
		Description: "d",
		Department:  domain.DepartmentLibrary,
	}); err == nil {
		t.Error("expected failure when every attempt collides")
	}
}

func TestSetStatusStampsAndOverwrites(t *testing.T) {
	repo := newFakeTicketRepo()
	dispatcher := &recordingDispatcher{}
	svc := newTicketService(repo, nil, dispatcher)

	first := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)
	svc.now = func() time.Time { return first }

	ticket := createStudentTicket(t, svc)
	actor := deptActor(domain.DepartmentIT)

	got, err := svc.SetStatus(context.Background(), actor, ticket.ID, domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(first) {
		t.Fatalf("ResolvedAt = %v, want %v", got.ResolvedAt, first)
	}

	// Reopen, then resolve again later: the stamp moves forward.
	if _, err := svc.SetStatus(context.Background(), actor, ticket.ID, domain.TicketStatusInProgress); err != nil {
		t.Fatalf("SetStatus reopen: %v", err)
	}
	svc.now = func() time.Time { return second }
	got, err = svc.SetStatus(context.Background(), actor, ticket.ID, domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("SetStatus second resolve: %v", err)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(second) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, second)
	}

	published := dispatcher.byType(events.EventTicketStatusChanged)
	if len(published) != 3 {
		t.Errorf("status events = %d, want 3", len(published))
	}
}

func TestSetStatusDeniedBeforeMutation(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTicketService(repo, nil, nil)
	ticket := createStudentTicket(t, svc)

	// The submitting student may view but not work the ticket.
	_, err := svc.SetStatus(context.Background(), studentActor("student-1"), ticket.ID, domain.TicketStatusClosed)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.HTTPStatus != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusPending {
		t.Errorf("status mutated to %q despite denial", stored.Status)
	}
}

func TestSetPriorityScopedToOwnDepartment(t *testing.T) {
	svc := newTicketService(newFakeTicketRepo(), nil, nil)
	ticket := createStudentTicket(t, svc)

	if _, err := svc.SetPriority(context.Background(), deptActor(domain.DepartmentLibrary), ticket.ID, domain.TicketPriorityHigh); err == nil {
		t.Error("library staff changed an IT ticket's priority")
	}
	got, err := svc.SetPriority(context.Background(), deptActor(domain.DepartmentIT), ticket.ID, domain.TicketPriorityHigh)
	if err != nil {
		t.Fatalf("SetPriority: %v", err)
	}
	if got.Priority != domain.TicketPriorityHigh {
		t.Errorf("priority = %q, want High", got.Priority)
	}
}

func TestReassignResetsWorkflow(t *testing.T) {
	repo := newFakeTicketRepo()
	dispatcher := &recordingDispatcher{}
	svc := newTicketService(repo, nil, dispatcher)
	ticket := createStudentTicket(t, svc)

	if _, err := svc.SetStatus(context.Background(), deptActor(domain.DepartmentIT), ticket.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := svc.Reassign(context.Background(), adminActor(), ticket.ID, domain.DepartmentHostel)
	if err != nil {
		t.Fatalf("Reassign: %v", err)
	}
	if got.Department != domain.DepartmentHostel {
		t.Errorf("department = %q, want Hostel", got.Department)
	}
	if got.Status != domain.TicketStatusPending {
		t.Errorf("status = %q, want Pending after reassign", got.Status)
	}
	if got.ResolvedAt != nil || got.ClosedAt != nil {
		t.Error("resolution stamps survived reassignment")
	}

	published := dispatcher.byType(events.EventTicketReassigned)
	if len(published) != 1 {
		t.Fatalf("reassign events = %d, want 1", len(published))
	}
	payload := published[0].Payload.(events.TicketReassignedPayload)
	if payload.OldDepartment != domain.DepartmentIT || payload.NewDepartment != domain.DepartmentHostel {
		t.Errorf("payload departments = %q -> %q", payload.OldDepartment, payload.NewDepartment)
	}

	if _, err := svc.Reassign(context.Background(), deptActor(domain.DepartmentIT), ticket.ID, domain.DepartmentIT); err == nil {
		t.Error("non-admin reassigned a ticket")
	}
}

func TestAddCommentSnapshotAndPreview(t *testing.T) {
	repo := newFakeTicketRepo()
	dispatcher := &recordingDispatcher{}
	svc := newTicketService(repo, nil, dispatcher)
	ticket := createStudentTicket(t, svc)

	long := strings.Repeat("x", 150)
	got, err := svc.AddComment(context.Background(), deptActor(domain.DepartmentIT), ticket.ID, long)
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if len(got.Comments) != 1 {
		t.Fatalf("comments = %d, want 1", len(got.Comments))
	}
	comment := got.Comments[0]
	if comment.Text != long {
		t.Error("stored comment was truncated")
	}
	if comment.By != "IT Desk" || comment.Role != domain.RoleDepartment {
		t.Errorf("author snapshot = %q %q", comment.By, comment.Role)
	}

	published := dispatcher.byType(events.EventTicketCommentAdded)
	if len(published) != 1 {
		t.Fatalf("comment events = %d, want 1", len(published))
	}
	preview := published[0].Payload.(events.TicketCommentAddedPayload).BodyPreview
	if want := strings.Repeat("x", 100) + "..."; preview != want {
		t.Errorf("preview = %q (len %d), want 100 chars plus ellipsis", preview, len(preview))
	}
}

func TestOracleFallback(t *testing.T) {
	oracle := &stubOracle{err: errors.New("engine unreachable")}
	svc := newTicketService(newFakeTicketRepo(), oracle, nil)

	ticket := createStudentTicket(t, svc)
	if ticket.Suggestion != suggest.Fallback.Suggestion {
		t.Errorf("suggestion = %q, want fallback", ticket.Suggestion)
	}
	if ticket.SuggestedDepartment != "" {
		t.Errorf("suggested department = %q, want empty on fallback", ticket.SuggestedDepartment)
	}
	// The submitter-chosen department stands.
	if ticket.Department != domain.DepartmentIT {
		t.Errorf("department = %q, want IT", ticket.Department)
	}
}

func TestOracleAnswerRecorded(t *testing.T) {
	oracle := &stubOracle{answer: suggest.Suggestion{
		Suggestion: "Restart the access point and check the cable.",
		Department: domain.DepartmentIT,
	}}
	svc := newTicketService(newFakeTicketRepo(), oracle, nil)

	ticket := createStudentTicket(t, svc)
	if ticket.Suggestion != "Restart the access point and check the cable." {
		t.Errorf("suggestion = %q", ticket.Suggestion)
	}
	if ticket.SuggestedDepartment != domain.DepartmentIT {
		t.Errorf("suggested department = %q", ticket.SuggestedDepartment)
	}
}

func TestListAndAnalyticsScoping(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTicketService(repo, nil, nil)

	mine := createStudentTicket(t, svc)
	other := registeredStudent()
	other.ID = "student-2"
	other.Name = "Ravi Kumar"
	if _, err := svc.Create(context.Background(), other, TicketCreateInput{
		Title:       "Book not returned",
		Description: "Fine dispute.",
		Department:  domain.DepartmentLibrary,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	cases := []struct {
		name  string
		actor Actor
		want  int
	}{
		{"student sees own", studentActor("student-1"), 1},
		{"department sees its unit", deptActor(domain.DepartmentIT), 1},
		{"admin sees all", adminActor(), 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tickets, err := svc.List(context.Background(), tc.actor, nil, 0, 0)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(tickets) != tc.want {
				t.Errorf("tickets = %d, want %d", len(tickets), tc.want)
			}

			counts, err := svc.Analytics(context.Background(), tc.actor)
			if err != nil {
				t.Fatalf("Analytics: %v", err)
			}
			if counts.Total != int64(tc.want) {
				t.Errorf("total = %d, want %d", counts.Total, tc.want)
			}
		})
	}

	// A student must not read someone else's ticket.
	if _, err := svc.Get(context.Background(), studentActor("student-2"), mine.ID); err == nil {
		t.Error("foreign student read another student's ticket")
	}
}

func TestDeleteOwnership(t *testing.T) {
	repo := newFakeTicketRepo()
	svc := newTicketService(repo, nil, nil)
	ticket := createStudentTicket(t, svc)

	if err := svc.Delete(context.Background(), studentActor("student-2"), ticket.ID); err == nil {
		t.Error("non-owner deleted a ticket")
	}
	if err := svc.Delete(context.Background(), studentActor("student-1"), ticket.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), ticket.ID); err == nil {
		t.Error("ticket survived deletion")
	}
}
