package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// NotificationRepository handles persisted notification feed entries.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row.
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications
			(id, user_id, kind, title, message, read, created_at)
		VALUES
			(:id, :user_id, :kind, :title, :message, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("notification_repo.Create: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.db.SelectContext(ctx, &out, `
		SELECT * FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("notification_repo.ListByUser: %w", err)
	}
	return out, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = false`,
		userID)
	if err != nil {
		return 0, fmt.Errorf("notification_repo.CountUnread: %w", err)
	}
	return n, nil
}

// MarkRead flags a single notification as read. Scoped to the owner so a
// user cannot touch another user's feed.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return fmt.Errorf("notification_repo.MarkRead: %w", err)
	}
	return nil
}

// MarkAllRead flags every notification of a user as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE user_id = $1 AND read = false`,
		userID)
	if err != nil {
		return fmt.Errorf("notification_repo.MarkAllRead: %w", err)
	}
	return nil
}

// DeleteOlderThan prunes read notifications older than the cutoff. Used by
// the scheduler's housekeeping pass.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE read = true AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("notification_repo.DeleteOlderThan: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
