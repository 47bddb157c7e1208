package postgres

import (
	"context"
	"time"

	"github.com/ovomonie/banking-service/internal/domain"
	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// NotificationRepository implements ports.NotificationRepository on PostgreSQL.
type NotificationRepository struct {
	db *DBExecutor
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *DBExecutor) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	n.CreatedAt = time.Now().UTC()
	_, err := r.db.Pool().Exec(ctx,
		`INSERT INTO notifications (id, user_id, title, body, category, reference, read, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Title, n.Body, string(n.Category), n.Reference, n.Read, n.CreatedAt)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "create notification", err)
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Pool().Query(ctx,
		`SELECT id, user_id, title, body, category, reference, read, created_at
		   FROM notifications WHERE user_id = $1
		  ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "list notifications", err)
	}
	defer rows.Close()

	var out []domain.Notification
	for rows.Next() {
		var (
			n        domain.Notification
			category string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &category,
			&n.Reference, &n.Read, &n.CreatedAt); err != nil {
			return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "scan notification", err)
		}
		n.Category = domain.Category(category)
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead scopes the update to the owning user so one user cannot mark
// another user's notification.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := r.db.Pool().Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "mark notification read", err)
	}
	if tag.RowsAffected() != 1 {
		return domain.ErrNotFound.WithDetail("notification_id", id)
	}
	return nil
}
