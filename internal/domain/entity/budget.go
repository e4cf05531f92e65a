package entity

import "time"

// Budget increase statuses
const (
	IncreaseStatusPending  = "pendiente"
	IncreaseStatusApproved = "aprobada"
	IncreaseStatusRejected = "rechazada"
)

// BudgetIncrease is one budget-incorporation request for a centro/sector.
// Terminal once resolved; approval mutates the budget ledger additively.
type BudgetIncrease struct {
	ID          int64      `json:"id"`
	Centro      string     `json:"centro"`
	Sector      string     `json:"sector,omitempty"`
	Amount      float64    `json:"monto"`
	Motive      string     `json:"motivo,omitempty"`
	Status      string     `json:"estado"`
	RequesterID string     `json:"solicitante_id"`
	ResolverID  string     `json:"aprobador_id,omitempty"`
	Comment     string     `json:"comentario,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// BudgetLedgerEntry is the allocated/remaining budget for a (centro, sector)
type BudgetLedgerEntry struct {
	Centro          string  `json:"centro"`
	Sector          string  `json:"sector,omitempty"`
	AllocatedAmount float64 `json:"monto_total"`
	RemainingAmount float64 `json:"saldo"`
}
