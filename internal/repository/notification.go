package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/emergency_response_system/internal/models"
	"github.com/shenikar/emergency_response_system/internal/service"
)

const notificationColumns = `id, user_id, incident_id, notification_type, priority, title, message, is_read, read_at, created_at`

type NotificationRepository struct {
	db *pgxpool.Pool
}

func NewNotificationRepository(db *pgxpool.Pool) service.NotificationRepository {
	return &NotificationRepository{db: db}
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	n := &models.Notification{}
	err := row.Scan(&n.ID, &n.UserID, &n.IncidentID, &n.Type, &n.Priority, &n.Title, &n.Message, &n.IsRead, &n.ReadAt, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// CreateBatch вставляет уведомления одного события одним батчем
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	query := `
		INSERT INTO notifications (user_id, incident_id, notification_type, priority, title, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_read, created_at;
	`
	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(query, n.UserID, n.IncidentID, n.Type, n.Priority, n.Title, n.Message)
	}

	br := conn(ctx, r.db).SendBatch(ctx, batch)
	defer br.Close()

	for _, n := range notifications {
		if err := br.QueryRow().Scan(&n.ID, &n.IsRead, &n.CreatedAt); err != nil {
			return fmt.Errorf("failed to create notification: %w", err)
		}
	}
	return br.Close()
}

func (r *NotificationRepository) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, perPage int) ([]*models.Notification, int, error) {
	w := &whereBuilder{}
	w.add("user_id = $%d", userID)
	if unreadOnly {
		w.addRaw("NOT is_read")
	}

	var total int
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM notifications `+w.sql()+`;`, w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	offset := (page - 1) * perPage
	query := `SELECT ` + notificationColumns + ` FROM notifications ` + w.sql() +
		` ORDER BY created_at DESC, id LIMIT ` + w.next(perPage) + ` OFFSET ` + w.next(offset) + `;`
	rows, err := conn(ctx, r.db).Query(ctx, query, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error notifications iteration: %w", err)
	}
	return notifications, total, nil
}

// MarkRead помечает уведомление владельца прочитанным; read_at уже прочитанного не меняется
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (*models.Notification, error) {
	query := `
		UPDATE notifications SET
			is_read = TRUE,
			read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
		RETURNING ` + notificationColumns + `;
	`
	n, err := scanNotification(conn(ctx, r.db).QueryRow(ctx, query, id, userID, at))
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", mapNotFound(err, "notification "+id.String()))
	}
	return n, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE user_id = $1 AND NOT is_read;`
	tag, err := conn(ctx, r.db).Exec(ctx, query, userID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// MarkIncidentRead помечает прочитанными уведомления пользователя по одному инциденту
func (r *NotificationRepository) MarkIncidentRead(ctx context.Context, userID, incidentID uuid.UUID, at time.Time) (int64, error) {
	query := `UPDATE notifications SET is_read = TRUE, read_at = $3 WHERE user_id = $1 AND incident_id = $2 AND NOT is_read;`
	tag, err := conn(ctx, r.db).Exec(ctx, query, userID, incidentID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark incident notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT is_read;`
	if err := conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
