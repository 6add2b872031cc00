package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/assetflow/backend/internal/database"
	"github.com/assetflow/backend/internal/domain"
)

// NotificationRepository is the SQL gateway for persisted notifications.
type NotificationRepository struct{}

// NewNotificationRepository creates a NotificationRepository.
func NewNotificationRepository() *NotificationRepository { return &NotificationRepository{} }

const notificationColumns = `id, user_id, title, message, entity_type,
	entity_id, is_read, created_at, read_at`

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, q database.Querier, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()
	_, err := q.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.UserID, n.Title, n.Message, nullStr(n.EntityType),
		nullStr(n.EntityID), n.IsRead, n.CreatedAt, nullTime(n.ReadAt))
	if err != nil {
		return translate("notification.create", err)
	}
	return nil
}

// List returns a user's notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, q database.Querier, userID string, unreadOnly bool, page Page) ([]*domain.Notification, error) {
	page = page.Clamp()
	rows, err := q.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id=$1 AND ($2 = false OR is_read = false)
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		userID, unreadOnly, page.Size, page.Offset())
	if err != nil {
		return nil, translate("notification.list", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n := &domain.Notification{}
		var entityType, entityID stringOrNull
		var readAt nullTimeCol
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message,
			&entityType, &entityID, &n.IsRead, &n.CreatedAt, &readAt); err != nil {
			return nil, translate("notification.scan", err)
		}
		n.EntityType = entityType.String
		n.EntityID = entityID.String
		n.ReadAt = readAt.Ptr()
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, q database.Querier, userID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read=false`,
		userID).Scan(&count)
	if err != nil {
		return 0, translate("notification.count_unread", err)
	}
	return count, nil
}

// MarkRead flags one notification read.
func (r *NotificationRepository) MarkRead(ctx context.Context, q database.Querier, id string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE notifications SET is_read=true, read_at=$2 WHERE id=$1`,
		id, time.Now().UTC())
	if err != nil {
		return translate("notification.mark_read", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("notification", id)
	}
	return nil
}

// MarkAllRead flags all of a user's notifications read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, q database.Querier, userID string) error {
	_, err := q.ExecContext(ctx, `
		UPDATE notifications SET is_read=true, read_at=$2
		WHERE user_id=$1 AND is_read=false`, userID, time.Now().UTC())
	if err != nil {
		return translate("notification.mark_all_read", err)
	}
	return nil
}

// Delete removes one notification.
func (r *NotificationRepository) Delete(ctx context.Context, q database.Querier, id string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return translate("notification.delete", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("notification", id)
	}
	return nil
}

// ExistsForEntityOn reports whether a notification referencing the entity
// was already created on the given UTC day. Keeps the scheduler's
// maintenance reminders idempotent per (record, date).
func (r *NotificationRepository) ExistsForEntityOn(ctx context.Context, q database.Querier, userID, entityType, entityID string, day time.Time) (bool, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE user_id=$1 AND entity_type=$2 AND entity_id=$3
		  AND created_at >= $4 AND created_at < $5`,
		userID, entityType, entityID, start, end).Scan(&count)
	if err != nil {
		return false, translate("notification.exists", err)
	}
	return count > 0, nil
}
