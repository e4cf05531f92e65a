package entity

import "time"

// Treatment decision kinds
const (
	DecisionStock      = "stock"
	DecisionPurchase   = "compra"
	DecisionService    = "servicio"
	DecisionEquivalent = "equivalente"
)

var validDecisionKinds = map[string]bool{
	DecisionStock:      true,
	DecisionPurchase:   true,
	DecisionService:    true,
	DecisionEquivalent: true,
}

// IsValidDecisionKind returns true for a known treatment decision kind
func IsValidDecisionKind(kind string) bool {
	return validDecisionKinds[kind]
}

// TreatmentDecision is the planner's fulfillment decision for one item of a
// request, keyed by (request id, item index) with upsert semantics.
type TreatmentDecision struct {
	RequestID          int64     `json:"solicitud_id"`
	ItemIndex          int       `json:"item_index"`
	Kind               string    `json:"decision"`
	ApprovedQty        int       `json:"cantidad_aprobada"`
	EquivalentCode     string    `json:"codigo_equivalente,omitempty"`
	SuggestedSupplier  string    `json:"proveedor_sugerido,omitempty"`
	EstimatedUnitPrice *float64  `json:"precio_unitario_estimado,omitempty"`
	Comment            string    `json:"comentario,omitempty"`
	UpdatedBy          string    `json:"updated_by"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Contribution returns what this decision adds to the request total. Stock
// coverage costs nothing; purchase-like kinds cost the approved quantity at
// the estimated unit price, falling back to the original item price.
func (d *TreatmentDecision) Contribution(original Item) float64 {
	switch d.Kind {
	case DecisionPurchase, DecisionService, DecisionEquivalent:
		price := original.UnitPrice
		if d.EstimatedUnitPrice != nil {
			price = *d.EstimatedUnitPrice
		}
		return float64(d.ApprovedQty) * price
	default:
		return 0
	}
}
