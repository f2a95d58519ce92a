package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// ErrTrackingCodeTaken is returned when a generated tracking code
// collides with an existing row; callers retry with a fresh code.
var ErrTrackingCodeTaken = errors.New("tracking code already in use")

// TicketFilter captures list scoping. Nil fields mean unfiltered.
type TicketFilter struct {
	StudentID  *string
	Department *domain.Department
	Statuses   []domain.TicketStatus
	Limit      int
	Offset     int
}

// StatusCounts is the per-state tally used by the analytics endpoint.
type StatusCounts struct {
	Total      int64
	Pending    int64
	InProgress int64
	Resolved   int64
	Closed     int64
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	CountByStatus(ctx context.Context, filter TicketFilter) (StatusCounts, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, department, student_id, student_name, student_email,
               is_guest, tracking_code, status, priority, COALESCE(suggestion, ''),
               COALESCE(suggested_department, ''), comments, resolved_at, closed_at, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	comments, err := marshalComments(ticket.Comments)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (title, description, department, student_id, student_name, student_email,
                             is_guest, tracking_code, status, priority, suggestion, suggested_department, comments)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULLIF($11,''),NULLIF($12,''),$13)
        RETURNING id, created_at, updated_at`
	err = r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Department,
		ticket.StudentID,
		ticket.StudentName,
		ticket.StudentEmail,
		ticket.IsGuest,
		ticket.TrackingCode,
		ticket.Status,
		ticket.Priority,
		ticket.Suggestion,
		string(ticket.SuggestedDepartment),
		comments,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrTrackingCodeTaken
	}
	return err
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	comments, err := marshalComments(ticket.Comments)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET department=$1, status=$2, priority=$3, comments=$4,
            resolved_at=$5, closed_at=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Department,
		ticket.Status,
		ticket.Priority,
		comments,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE tracking_code=$1`, ticketColumns)
	return r.fetchSingle(ctx, query, strings.ToUpper(strings.TrimSpace(code)))
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		clauses = append(clauses, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CountByStatus(ctx context.Context, filter TicketFilter) (StatusCounts, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.StudentID != nil {
		args = append(args, *filter.StudentID)
		clauses = append(clauses, fmt.Sprintf("student_id=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT status, COUNT(*) FROM tickets WHERE %s GROUP BY status`,
		strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return StatusCounts{}, err
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status domain.TicketStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return StatusCounts{}, err
		}
		counts.Total += count
		switch status {
		case domain.TicketStatusPending:
			counts.Pending = count
		case domain.TicketStatusInProgress:
			counts.InProgress = count
		case domain.TicketStatusResolved:
			counts.Resolved = count
		case domain.TicketStatusClosed:
			counts.Closed = count
		}
	}
	return counts, rows.Err()
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	return scanTicket(r.pool.QueryRow(ctx, query, arg).Scan)
}

func scanTicket(scan func(...any) error) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var comments []byte
	if err := scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Department,
		&ticket.StudentID,
		&ticket.StudentName,
		&ticket.StudentEmail,
		&ticket.IsGuest,
		&ticket.TrackingCode,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Suggestion,
		&ticket.SuggestedDepartment,
		&comments,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(comments) > 0 {
		if err := json.Unmarshal(comments, &ticket.Comments); err != nil {
			return nil, fmt.Errorf("decode comments: %w", err)
		}
	}
	return &ticket, nil
}

func marshalComments(comments []domain.Comment) ([]byte, error) {
	if comments == nil {
		comments = []domain.Comment{}
	}
	return json.Marshal(comments)
}
