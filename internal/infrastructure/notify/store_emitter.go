package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// StoreEmitter persists workflow notifications as inbox rows. It runs inside
// the caller's transaction so the notification commits with the transition
// that produced it.
type StoreEmitter struct {
	notifications port.NotificationRepository
	logger        *zap.Logger
}

// NewStoreEmitter creates a new StoreEmitter
func NewStoreEmitter(notifications port.NotificationRepository, logger *zap.Logger) *StoreEmitter {
	return &StoreEmitter{
		notifications: notifications,
		logger:        logger,
	}
}

// Emit enqueues one notification. An empty recipient is a no-op.
func (e *StoreEmitter) Emit(ctx context.Context, recipientID string, requestID int64, message string) error {
	if recipientID == "" {
		return nil
	}

	n := &entity.Notification{
		RecipientID: recipientID,
		RequestID:   requestID,
		Message:     message,
	}
	if err := e.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	e.logger.Debug("Notification enqueued",
		zap.String("recipient", recipientID),
		zap.Int64("request_id", requestID))
	return nil
}

// Verify interface compliance
var _ port.NotificationEmitter = (*StoreEmitter)(nil)
