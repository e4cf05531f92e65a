package entity

import "time"

// PlannerRule maps organizational coordinates to a planner. Unset filter
// fields are wildcards; specificity ordering is resolved by the assignment
// resolver, not by the rule itself.
type PlannerRule struct {
	ID        int64     `json:"id"`
	PlannerID string    `json:"planificador_id"`
	Centro    string    `json:"centro,omitempty"`
	Sector    string    `json:"sector,omitempty"`
	Almacen   string    `json:"almacen_virtual,omitempty"`
	Active    bool      `json:"activo"`
	CreatedAt time.Time `json:"created_at"`
}
