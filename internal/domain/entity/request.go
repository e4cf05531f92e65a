package entity

import (
	"time"

	"github.com/spmflow/spm-workflow/internal/domain/workflow"
)

// Criticality levels for a requisition
const (
	CriticalityNormal = "Normal"
	CriticalityHigh   = "Alta"
)

// Decision actions shared by the approval and cancellation workflows
const (
	ActionApprove = "aprobar"
	ActionReject  = "rechazar"
)

// PayloadVersion is the current version of the embedded request payload
const PayloadVersion = 1

// Request represents one materials requisition with its workflow metadata.
// The row is the single source of truth for status; the embedded payload
// carries the item list and the decision/cancel sub-records.
type Request struct {
	ID             int64          `json:"id"`
	OwnerID        string         `json:"id_usuario"`
	Centro         string         `json:"centro"`
	Sector         string         `json:"sector"`
	CentroCostos   string         `json:"centro_costos"`
	AlmacenVirtual string         `json:"almacen_virtual"`
	Criticality    string         `json:"criticidad"`
	NeedBy         string         `json:"fecha_necesidad"`
	Justification  string         `json:"justificacion"`
	Status         workflow.State `json:"status"`
	ApproverID     string         `json:"aprobador_id,omitempty"`
	PlannerID      string         `json:"planner_id,omitempty"`
	TotalAmount    float64        `json:"total_monto"`
	Payload        RequestPayload `json:"payload"`
	NotifiedAt     *time.Time     `json:"notificado_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// RequestPayload is the versioned structure persisted in the items_json
// column. Sub-records are explicit tagged fields rather than a free-form map
// so additive changes don't break readers.
type RequestPayload struct {
	Version      int             `json:"version"`
	Items        []Item          `json:"items"`
	Decision     *DecisionRecord `json:"decision,omitempty"`
	Cancel       *CancelRequest  `json:"cancel_request,omitempty"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
}

// Item is a single requested material line. Items are immutable once the
// request leaves draft; treatment decisions reference them by index.
type Item struct {
	Code        string  `json:"codigo"`
	Description string  `json:"descripcion"`
	Unit        string  `json:"unidad,omitempty"`
	Quantity    int     `json:"cantidad"`
	UnitPrice   float64 `json:"precio_unitario"`
	Comment     string  `json:"comentario,omitempty"`
	Subtotal    float64 `json:"subtotal"`
}

// DecisionRecord captures the approver's decision metadata
type DecisionRecord struct {
	Action    string    `json:"accion"`
	DecidedBy string    `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
	Comment   string    `json:"comment,omitempty"`
}

// Cancellation sub-record statuses
const (
	CancelStatusPending  = "pendiente"
	CancelStatusApproved = "aprobada"
	CancelStatusRejected = "rechazada"
)

// CancelRequest is the cancellation sub-record embedded on a request.
// At most one is active at a time.
type CancelRequest struct {
	Status          string     `json:"status"`
	Reason          string     `json:"reason,omitempty"`
	RequestedBy     string     `json:"requested_by"`
	RequestedAt     time.Time  `json:"requested_at"`
	DecidedBy       string     `json:"decision_by,omitempty"`
	DecidedAt       *time.Time `json:"decision_at,omitempty"`
	DecisionComment string     `json:"decision_comment,omitempty"`
}

// IsPending reports whether the cancellation is still awaiting a decision
func (c *CancelRequest) IsPending() bool {
	return c != nil && c.Status == CancelStatusPending
}

// NormalizeItems sanitizes raw item lines: quantities are clamped to at
// least 1, negative prices to 0, and subtotals recomputed. Lines without a
// material code are dropped. Returns the cleaned items and their total.
func NormalizeItems(raw []Item) ([]Item, float64) {
	items := make([]Item, 0, len(raw))
	total := 0.0
	for _, it := range raw {
		if it.Code == "" {
			continue
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		if it.UnitPrice < 0 {
			it.UnitPrice = 0
		}
		it.UnitPrice = Round2(it.UnitPrice)
		it.Subtotal = Round2(float64(it.Quantity) * it.UnitPrice)
		items = append(items, it)
		total += it.Subtotal
	}
	return items, Round2(total)
}
