package workflow

// State represents a requisition state in the approval and treatment lifecycle
type State string

const (
	StateDraft           State = "draft"
	StatePendingApproval State = "pendiente_de_aprobacion"
	StateApproved        State = "aprobada"
	StateInTreatment     State = "en_tratamiento"
	StateFinalized       State = "finalizada"
	StateRejected        State = "rechazada"
	StateCancelled       State = "cancelada"
	StateCancelPending   State = "cancelacion_pendiente"
	StateCancelRejected  State = "cancelacion_rechazada"
)

var validStates = map[State]bool{
	StateDraft:           true,
	StatePendingApproval: true,
	StateApproved:        true,
	StateInTreatment:     true,
	StateFinalized:       true,
	StateRejected:        true,
	StateCancelled:       true,
	StateCancelPending:   true,
	StateCancelRejected:  true,
}

var terminalStates = map[State]bool{
	StateFinalized: true,
	StateRejected:  true,
	StateCancelled: true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
