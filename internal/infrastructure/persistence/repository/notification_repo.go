package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a notification row
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `INSERT INTO notificaciones (destinatario, solicitud_id, mensaje) VALUES (?, ?, ?)`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, n.RecipientID, n.RequestID, n.Message)
	if err != nil {
		r.logger.Error("Failed to create notification", zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	n.ID = id
	return nil
}

// ListByRecipient retrieves notifications for a user, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*entity.Notification, error) {
	query := `
		SELECT id, destinatario, solicitud_id, mensaje, leida, created_at
		FROM notificaciones
		WHERE destinatario = ?
	`
	if unreadOnly {
		query += ` AND leida = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, recipientID)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.String("recipient", recipientID), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		err := rows.Scan(&n.ID, &n.RecipientID, &n.RequestID, &n.Message, &n.Read, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// MarkRead flags a notification as read, scoped to its recipient
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, recipientID string) error {
	query := `UPDATE notificaciones SET leida = 1 WHERE id = ? AND destinatario = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, id, recipientID)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
