package entity

import "strings"

// User is an organizational directory entry consumed by the workflow. The
// hierarchy fields hold email references resolved against the directory.
type User struct {
	ID        string `json:"id_spm"`
	FirstName string `json:"nombre"`
	LastName  string `json:"apellido"`
	Email     string `json:"mail,omitempty"`
	Role      string `json:"rol"`
	Position  string `json:"posicion,omitempty"`
	Sector    string `json:"sector,omitempty"`
	Centros   string `json:"centros,omitempty"`
	Jefe      string `json:"jefe,omitempty"`
	Gerente1  string `json:"gerente1,omitempty"`
	Gerente2  string `json:"gerente2,omitempty"`
}

// CapabilitySet is the explicit capability view of a user, derived once when
// the user is loaded instead of substring-matching role strings at call time.
type CapabilitySet struct {
	CanApprove         bool `json:"can_approve"`
	CanPlan            bool `json:"can_plan"`
	CanAdminister      bool `json:"can_administer"`
	CanRequestIncrease bool `json:"can_request_increase"`
	CanApproveIncrease bool `json:"can_approve_increase"`
}

func containsAny(haystack string, needles ...string) bool {
	lowered := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lowered, n) {
			return true
		}
	}
	return false
}

// Capabilities derives the capability set from the user's role and position
// vocabulary. The vocabulary is fixed business policy, not configuration.
func (u *User) Capabilities() CapabilitySet {
	caps := CapabilitySet{}
	caps.CanAdminister = containsAny(u.Role, "admin", "administrador")
	caps.CanPlan = caps.CanAdminister || containsAny(u.Role, "planner", "planificador")
	caps.CanApprove = caps.CanAdminister || caps.CanPlan || containsAny(u.Role, "aprobador")
	caps.CanRequestIncrease = containsAny(u.Position, "jefe", "gerente1") || containsAny(u.Role, "gerente1")
	caps.CanApproveIncrease = caps.CanAdminister || containsAny(u.Position, "gerente2") || containsAny(u.Role, "gerente2")
	return caps
}

// AssignedCentros splits the comma- or semicolon-separated centros field
func (u *User) AssignedCentros() []string {
	raw := strings.ReplaceAll(u.Centros, ";", ",")
	parts := strings.Split(raw, ",")
	centros := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			centros = append(centros, trimmed)
		}
	}
	return centros
}

// HasCentro reports whether a centro is within the user's assigned scope
func (u *User) HasCentro(centro string) bool {
	for _, c := range u.AssignedCentros() {
		if strings.EqualFold(c, centro) {
			return true
		}
	}
	return false
}
