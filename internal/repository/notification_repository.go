package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// NotificationRepository encapsulates notification persistence.
// Listing returns rows newest first; visibility filtering is the
// notify package's concern, not the store's.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, limit int) ([]domain.Notification, error)
	Delete(ctx context.Context, id string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, user_id, ticket_id, type, audience, department, title, message, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, ticket_id, type, audience, department, title, message)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		n.UserID,
		n.TicketID,
		n.Type,
		n.Audience,
		n.Department,
		n.Title,
		n.Message,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id=$1`
	var n domain.Notification
	if err := scanNotification(r.pool.QueryRow(ctx, query, id).Scan, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := scanNotification(rows.Scan, &n); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanNotification(scan func(...any) error, n *domain.Notification) error {
	return scan(
		&n.ID,
		&n.UserID,
		&n.TicketID,
		&n.Type,
		&n.Audience,
		&n.Department,
		&n.Title,
		&n.Message,
		&n.CreatedAt,
	)
}
