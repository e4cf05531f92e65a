// Package workflow models the requisition lifecycle as a guarded state
// machine. Services build a machine at the request's current status, fire a
// trigger, and persist the resulting state inside the same transaction that
// re-read the status.
package workflow

import "context"

type contextKey string

const plannerAssignedKey contextKey = "planner_assigned"

// WithPlannerAssigned marks the context with the outcome of planner
// resolution so the approve transition can pick its target state.
func WithPlannerAssigned(ctx context.Context, assigned bool) context.Context {
	return context.WithValue(ctx, plannerAssignedKey, assigned)
}

func plannerAssigned(ctx context.Context) bool {
	v, ok := ctx.Value(plannerAssignedKey).(bool)
	return ok && v
}

func plannerUnassigned(ctx context.Context) bool {
	return !plannerAssigned(ctx)
}

// NewRequestLifecycle configures the requisition lifecycle:
//
//	draft -> pendiente_de_aprobacion -> {en_tratamiento | aprobada | rechazada}
//	aprobada -> en_tratamiento (planner claim)
//	en_tratamiento -> {finalizada | rechazada}
//
// Cancellation enters from any non-terminal, non-draft state; from draft or
// cancelacion_rechazada it is immediate. cancelacion_rechazada re-admits the
// request to submit as if it were a draft.
func NewRequestLifecycle() StateMachineBuilder {
	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerSubmit, StatePendingApproval).
		Permit(TriggerDirectCancel, StateCancelled)

	b.Configure(StateCancelRejected).
		Permit(TriggerSubmit, StatePendingApproval).
		Permit(TriggerDirectCancel, StateCancelled)

	b.Configure(StatePendingApproval).
		PermitIf(TriggerApprove, StateInTreatment, plannerAssigned).
		PermitIf(TriggerApprove, StateApproved, plannerUnassigned).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerRequestCancel, StateCancelPending)

	b.Configure(StateApproved).
		Permit(TriggerAssignPlanner, StateInTreatment).
		Permit(TriggerRequestCancel, StateCancelPending)

	b.Configure(StateInTreatment).
		Permit(TriggerAssignPlanner, StateInTreatment).
		Permit(TriggerFinalizeTreatment, StateFinalized).
		Permit(TriggerRejectTreatment, StateRejected).
		Permit(TriggerRequestCancel, StateCancelPending)

	b.Configure(StateCancelPending).
		Permit(TriggerApproveCancel, StateCancelled).
		Permit(TriggerRejectCancel, StateCancelRejected)

	return b
}
