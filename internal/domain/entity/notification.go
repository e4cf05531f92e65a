package entity

import "time"

// Notification is one queued workflow event for a recipient. Delivery
// transport is external; this core only enqueues rows.
type Notification struct {
	ID          int64     `json:"id"`
	RecipientID string    `json:"destinatario_id"`
	RequestID   int64     `json:"solicitud_id,omitempty"`
	Message     string    `json:"mensaje"`
	Read        bool      `json:"leido"`
	CreatedAt   time.Time `json:"created_at"`
}
