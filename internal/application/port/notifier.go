package port

import "context"

// NotificationEmitter receives workflow events to enqueue for a recipient.
// Delivery transport is external to this core; the emitter only records the
// event. Implementations must tolerate an empty recipient (no-op).
type NotificationEmitter interface {
	Emit(ctx context.Context, recipientID string, requestID int64, message string) error
}
