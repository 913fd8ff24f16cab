package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nearu/nearu-backend/internal/models"
)

// NotificationRepository handles users/{uid}/notifications
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, title, body, from_user_id, read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.FromUser, boolToInt(n.Read), n.CreatedAt.UnixMilli())
	if err != nil {
		return storageErr("create notification", err)
	}
	return nil
}

// ListUnread returns unread notifications for userID, newest first
func (r *NotificationRepository) ListUnread(ctx context.Context, userID string) ([]models.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, type, title, body, from_user_id, read, created_at FROM notifications
		 WHERE user_id = ? AND read = 0 ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, storageErr("list notifications", err)
	}
	defer rows.Close()

	out := []models.Notification{}
	for rows.Next() {
		var (
			n         models.Notification
			read      int
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.FromUser, &read, &createdAt); err != nil {
			return nil, storageErr("scan notification", err)
		}
		n.Read = read == 1
		n.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list notifications", err)
	}
	return out, nil
}

// CountUnread returns the number of unread notifications of a type, or of any type when typ is empty
func (r *NotificationRepository) CountUnread(ctx context.Context, userID, typ string) (int, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`
	args := []any{userID}
	if typ != "" {
		query += ` AND type = ?`
		args = append(args, typ)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, storageErr("count notifications", err)
	}
	return n, nil
}

// MarkRead marks one of userID's notifications read
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return storageErr("mark notification read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("mark notification read", err)
	}
	if n == 0 {
		return fmt.Errorf("notification %s: %w", id, models.ErrNotFound)
	}
	return nil
}
