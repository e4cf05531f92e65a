package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// NotificationService exposes the per-user notification inbox
type NotificationService interface {
	List(ctx context.Context, recipientID string, unreadOnly bool) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, recipientID string, id int64) error
}

type notificationServiceImpl struct {
	notifications port.NotificationRepository
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notifications port.NotificationRepository, logger Logger) NotificationService {
	return &notificationServiceImpl{notifications: notifications, logger: logger}
}

func (s *notificationServiceImpl) List(ctx context.Context, recipientID string, unreadOnly bool) ([]*entity.Notification, error) {
	return s.notifications.ListByRecipient(ctx, strings.ToLower(recipientID), unreadOnly)
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, recipientID string, id int64) error {
	if err := s.notifications.MarkRead(ctx, id, strings.ToLower(recipientID)); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}
