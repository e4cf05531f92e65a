package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSubmit            Trigger = "SUBMIT"
	TriggerApprove           Trigger = "APPROVE"
	TriggerReject            Trigger = "REJECT"
	TriggerAssignPlanner     Trigger = "ASSIGN_PLANNER"
	TriggerFinalizeTreatment Trigger = "FINALIZE_TREATMENT"
	TriggerRejectTreatment   Trigger = "REJECT_TREATMENT"
	TriggerDirectCancel      Trigger = "DIRECT_CANCEL"
	TriggerRequestCancel     Trigger = "REQUEST_CANCEL"
	TriggerApproveCancel     Trigger = "APPROVE_CANCEL"
	TriggerRejectCancel      Trigger = "REJECT_CANCEL"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
