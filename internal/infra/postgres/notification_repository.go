package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"learnpath-service/internal/domain"
)

// NotificationRepository stores notifications with their content as one
// JSONB payload per row; a NULL user_id marks a broadcast.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// notificationData is the JSONB payload shape.
type notificationData struct {
	Type    string            `json:"type"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) CreateNotification(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(notificationData{
		Type:    n.Type,
		Title:   n.Title,
		Message: n.Message,
		Data:    n.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	var userID interface{}
	if !n.Broadcast() {
		userID = n.UserID
	}
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, data, priority, read_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, userID, payload, n.Priority, n.ReadAt, createdAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", mapError(err))
	}
	return nil
}

func (r *NotificationRepository) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, data, priority, read_at, created_at
		FROM notifications
		WHERE user_id=$1 OR user_id IS NULL
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", mapError(err))
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var rowUserID *string
		var payload []byte
		if err := rows.Scan(&n.ID, &rowUserID, &payload, &n.Priority, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if rowUserID != nil {
			n.UserID = *rowUserID
		}
		var data notificationData
		if err := json.Unmarshal(payload, &data); err == nil {
			n.Type = data.Type
			n.Title = data.Title
			n.Message = data.Message
			n.Data = data.Data
		}
		notifications = append(notifications, domain.NormalizeNotification(n))
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at=now() WHERE id=$1 AND read_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		// Unknown or already read; marking read is idempotent either way.
		return nil
	}
	return nil
}

func (r *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE notifications SET read_at=now()
		WHERE (user_id=$1 OR user_id IS NULL) AND read_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", mapError(err))
	}
	return nil
}
