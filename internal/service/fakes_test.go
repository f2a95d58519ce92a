package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
	"github.com/spec-kit/campus-helpdesk/internal/repository"
)

// In-memory repository fakes shared by the service tests. They mirror
// the Postgres-backed implementations closely enough for lifecycle
// tests: missing rows surface pgx.ErrNoRows, reads return copies, and
// notification listing is newest first.

type fakeTicketRepo struct {
	mu      sync.Mutex
	rows    map[string]domain.Ticket
	nextID  int
	collide int // pending ErrTrackingCodeTaken responses for Create
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{rows: map[string]domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.collide > 0 {
		f.collide--
		return repository.ErrTrackingCodeTaken
	}
	f.nextID++
	ticket.ID = fmt.Sprintf("ticket-%d", f.nextID)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	f.rows[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	f.rows[ticket.ID] = *ticket
	return nil
}

func (f *fakeTicketRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &row, nil
}

func (f *fakeTicketRepo) GetByTrackingCode(ctx context.Context, code string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.TrackingCode != nil && *row.TrackingCode == code {
			match := row
			return &match, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeTicketRepo) matches(row domain.Ticket, filter repository.TicketFilter) bool {
	if filter.StudentID != nil {
		if row.StudentID == nil || *row.StudentID != *filter.StudentID {
			return false
		}
	}
	if filter.Department != nil && row.Department != *filter.Department {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if row.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (f *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, row := range f.rows {
		if f.matches(row, filter) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeTicketRepo) CountByStatus(ctx context.Context, filter repository.TicketFilter) (repository.StatusCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var counts repository.StatusCounts
	for _, row := range f.rows {
		if !f.matches(row, filter) {
			continue
		}
		counts.Total++
		switch row.Status {
		case domain.TicketStatusPending:
			counts.Pending++
		case domain.TicketStatusInProgress:
			counts.InProgress++
		case domain.TicketStatusResolved:
			counts.Resolved++
		case domain.TicketStatusClosed:
			counts.Closed++
		}
	}
	return counts, nil
}

type fakeUserRepo struct {
	mu     sync.Mutex
	rows   map[string]domain.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{rows: map[string]domain.User{}}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Email == strings.ToLower(user.Email) {
			return repository.ErrEmailTaken
		}
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.rows[user.ID] = *user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &row, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.Email == strings.ToLower(email) {
			match := row
			return &match, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) ListByDepartment(ctx context.Context, dept domain.Department) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, row := range f.rows {
		if row.Role == domain.RoleDepartment && row.Department == dept {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeNotificationRepo struct {
	mu     sync.Mutex
	rows   []domain.Notification
	nextID int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{}
}

func (f *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	n.ID = fmt.Sprintf("notice-%d", f.nextID)
	n.CreatedAt = time.Now()
	f.rows = append(f.rows, *n)
	return nil
}

func (f *fakeNotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			match := row
			return &match, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeNotificationRepo) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Notification, 0, len(f.rows))
	for i := len(f.rows) - 1; i >= 0; i-- {
		out = append(out, f.rows[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, row := range f.rows {
		if row.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}
