package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spmflow/spm-workflow/internal/apperr"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
	"github.com/spmflow/spm-workflow/internal/domain/workflow"
)

type requestFixture struct {
	svc       RequestService
	store     map[int64]*entity.Request
	usersByID map[string]*entity.User
	decisions map[int]*entity.TreatmentDecision
	emitter   *mockEmitter
}

func newRequestFixture(t *testing.T, users map[string]string, rules []*entity.PlannerRule) *requestFixture {
	t.Helper()
	store := make(map[int64]*entity.Request)
	usersByID := make(map[string]*entity.User)
	decisions := make(map[int]*entity.TreatmentDecision)
	nextID := int64(0)

	requests := &mockRequestRepo{
		CreateFunc: func(ctx context.Context, req *entity.Request) error {
			nextID++
			req.ID = nextID
			copied := *req
			store[req.ID] = &copied
			return nil
		},
		GetByIDFunc: func(ctx context.Context, id int64) (*entity.Request, error) {
			if req, ok := store[id]; ok {
				copied := *req
				return &copied, nil
			}
			return nil, nil
		},
		UpdateFunc: func(ctx context.Context, req *entity.Request) error {
			copied := *req
			store[req.ID] = &copied
			return nil
		},
		UpdateTotalFunc: func(ctx context.Context, id int64, total float64) error {
			store[id].TotalAmount = total
			return nil
		},
		ListByOwnerFunc: func(ctx context.Context, ownerID string) ([]*entity.Request, error) {
			var out []*entity.Request
			for _, req := range store {
				if req.OwnerID == ownerID {
					out = append(out, req)
				}
			}
			return out, nil
		},
	}

	directory := directoryWith(users)
	directory.GetByIDFunc = func(ctx context.Context, id string) (*entity.User, error) {
		return usersByID[id], nil
	}

	treatments := &mockTreatmentRepo{
		DeleteByRequestFunc: func(ctx context.Context, requestID int64) error {
			for idx := range decisions {
				delete(decisions, idx)
			}
			return nil
		},
	}

	emitter := &mockEmitter{}
	svc := NewRequestService(
		requests,
		treatments,
		NewApproverResolver(directory),
		NewPlannerAssignmentResolver(rulesRepoWith(rules...)),
		emitter,
		&mockTxManager{},
		noopLogger{},
	)
	return &requestFixture{svc: svc, store: store, usersByID: usersByID, decisions: decisions, emitter: emitter}
}

func validInput() DraftInput {
	return DraftInput{
		Centro:        "C1",
		Sector:        "S1",
		Justification: "reposicion de repuestos",
		Items: []entity.Item{
			{Code: "MAT-1", Description: "rodamiento", Quantity: 4, UnitPrice: 125.50},
		},
	}
}

func requester() *entity.User {
	return &entity.User{ID: "u1", Role: "solicitante", Jefe: "jefe@acme.com"}
}

func TestCreateAndSubmit(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)

	assert.Equal(t, workflow.StatePendingApproval, req.Status)
	assert.Equal(t, "u-jefe", req.ApproverID)
	assert.Equal(t, 502.0, req.TotalAmount)
	assert.NotNil(t, req.NotifiedAt)
	assert.Equal(t, []string{"u-jefe"}, f.emitter.recipients)
}

func TestSubmit_RequiresItems(t *testing.T) {
	f := newRequestFixture(t, nil, nil)
	input := validInput()
	input.Items = nil

	_, err := f.svc.CreateAndSubmit(context.Background(), requester(), input)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestSubmit_ItemsWithoutCodeDropped(t *testing.T) {
	f := newRequestFixture(t, nil, nil)
	input := validInput()
	input.Items = []entity.Item{{Description: "sin codigo", Quantity: 2, UnitPrice: 10}}

	_, err := f.svc.CreateAndSubmit(context.Background(), requester(), input)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestSubmit_OnlyOwner(t *testing.T) {
	f := newRequestFixture(t, nil, nil)
	draft, err := f.svc.CreateDraft(context.Background(), requester(), validInput())
	require.NoError(t, err)

	intruder := &entity.User{ID: "u2", Role: "solicitante"}
	_, err = f.svc.Submit(context.Background(), intruder, draft.ID, validInput())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestDecide_ApproveWithPlannerRule(t *testing.T) {
	rules := []*entity.PlannerRule{{ID: 1, PlannerID: "p1", Centro: "C1", Sector: "S1"}}
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, rules)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)

	approver := &entity.User{ID: "u-jefe", Role: "aprobador"}
	decided, err := f.svc.Decide(context.Background(), approver, req.ID, entity.ActionApprove, "ok")
	require.NoError(t, err)

	assert.Equal(t, workflow.StateInTreatment, decided.Status)
	assert.Equal(t, "p1", decided.PlannerID)
	require.NotNil(t, decided.Payload.Decision)
	assert.Equal(t, entity.ActionApprove, decided.Payload.Decision.Action)
	assert.Equal(t, "u-jefe", decided.Payload.Decision.DecidedBy)
}

func TestDecide_ApproveWithoutPlannerRule(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)

	approver := &entity.User{ID: "u-jefe", Role: "aprobador"}
	decided, err := f.svc.Decide(context.Background(), approver, req.ID, entity.ActionApprove, "")
	require.NoError(t, err)

	assert.Equal(t, workflow.StateApproved, decided.Status)
	assert.Empty(t, decided.PlannerID)
}

func TestDecide_Reject(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)

	approver := &entity.User{ID: "u-jefe", Role: "aprobador"}
	decided, err := f.svc.Decide(context.Background(), approver, req.ID, entity.ActionReject, "sin presupuesto")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateRejected, decided.Status)
}

func TestDecide_TwiceConflicts(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)

	approver := &entity.User{ID: "u-jefe", Role: "aprobador"}
	_, err = f.svc.Decide(context.Background(), approver, req.ID, entity.ActionReject, "no")
	require.NoError(t, err)

	_, err = f.svc.Decide(context.Background(), approver, req.ID, entity.ActionApprove, "si")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStateConflict, apperr.CodeOf(err))
}

func TestDecide_ForbiddenForStranger(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)

	stranger := &entity.User{ID: "u9", Role: "solicitante"}
	_, err = f.svc.Decide(context.Background(), stranger, req.ID, entity.ActionApprove, "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}

func TestRequestCancel_DirectFromDraft(t *testing.T) {
	f := newRequestFixture(t, nil, nil)
	draft, err := f.svc.CreateDraft(context.Background(), requester(), validInput())
	require.NoError(t, err)

	cancelled, err := f.svc.RequestCancel(context.Background(), "u1", draft.ID, "ya no hace falta")
	require.NoError(t, err)

	assert.Equal(t, workflow.StateCancelled, cancelled.Status)
	assert.Nil(t, cancelled.Payload.Cancel, "direct cancel records no pending sub-record")
	assert.Equal(t, "ya no hace falta", cancelled.Payload.CancelReason)
	assert.NotNil(t, cancelled.Payload.CancelledAt)
}

func TestRequestCancel_PendingWorkflow(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)

	pending, err := f.svc.RequestCancel(context.Background(), "u1", req.ID, "cambio de alcance")
	require.NoError(t, err)

	assert.Equal(t, workflow.StateCancelPending, pending.Status)
	require.True(t, pending.Payload.Cancel.IsPending())
	assert.Equal(t, "u1", pending.Payload.Cancel.RequestedBy)

	// A second cancellation while one is pending is a state conflict
	_, err = f.svc.RequestCancel(context.Background(), "u1", req.ID, "otra vez")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStateConflict, apperr.CodeOf(err))
}

func TestDecideCancel_Approve(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)
	_, err = f.svc.RequestCancel(context.Background(), "u1", req.ID, "cambio de alcance")
	require.NoError(t, err)

	approver := &entity.User{ID: "u-jefe", Role: "aprobador"}
	cancelled, err := f.svc.DecideCancel(context.Background(), approver, req.ID, entity.ActionApprove, "de acuerdo")
	require.NoError(t, err)

	assert.Equal(t, workflow.StateCancelled, cancelled.Status)
	assert.Equal(t, entity.CancelStatusApproved, cancelled.Payload.Cancel.Status)
	assert.NotNil(t, cancelled.Payload.CancelledAt)
}

func TestDecideCancel_RejectReadmitsToSubmission(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)
	_, err = f.svc.RequestCancel(context.Background(), "u1", req.ID, "cambio de alcance")
	require.NoError(t, err)

	approver := &entity.User{ID: "u-jefe", Role: "aprobador"}
	rejected, err := f.svc.DecideCancel(context.Background(), approver, req.ID, entity.ActionReject, "sigue vigente")
	require.NoError(t, err)
	assert.Equal(t, workflow.StateCancelRejected, rejected.Status)

	// Cancellation-rejected behaves like a draft: the owner can resubmit
	resubmitted, err := f.svc.Submit(context.Background(), requester(), req.ID, validInput())
	require.NoError(t, err)
	assert.Equal(t, workflow.StatePendingApproval, resubmitted.Status)
	assert.Nil(t, resubmitted.Payload.Cancel)
}

func TestSubmit_AfterCancelRejectionClearsTreatmentLedger(t *testing.T) {
	f := newRequestFixture(t, map[string]string{"jefe@acme.com": "u-jefe"}, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)
	_, err = f.svc.RequestCancel(context.Background(), "u1", req.ID, "cambio de alcance")
	require.NoError(t, err)

	approver := &entity.User{ID: "u-jefe", Role: "aprobador"}
	_, err = f.svc.DecideCancel(context.Background(), approver, req.ID, entity.ActionReject, "sigue vigente")
	require.NoError(t, err)

	// A decision left over from an earlier treatment round
	f.decisions[0] = &entity.TreatmentDecision{RequestID: req.ID, ItemIndex: 0, Kind: entity.DecisionStock, ApprovedQty: 4}

	_, err = f.svc.Submit(context.Background(), requester(), req.ID, validInput())
	require.NoError(t, err)
	assert.Empty(t, f.decisions, "resubmission starts a fresh treatment round")
}

func TestUpdateDraft_ReresolvesApproverOnAmountChange(t *testing.T) {
	users := map[string]string{"jefe@acme.com": "u-jefe", "g1@acme.com": "u-g1"}
	f := newRequestFixture(t, users, nil)

	owner := &entity.User{ID: "u1", Role: "solicitante", Jefe: "jefe@acme.com", Gerente1: "g1@acme.com"}
	f.usersByID["u1"] = owner

	draft, err := f.svc.CreateDraft(context.Background(), owner, validInput())
	require.NoError(t, err)
	assert.Equal(t, "u-jefe", draft.ApproverID)

	input := validInput()
	input.Items = []entity.Item{{Code: "MAT-2", Quantity: 1, UnitPrice: 50000}}
	updated, err := f.svc.UpdateDraft(context.Background(), "u1", draft.ID, input)
	require.NoError(t, err)
	assert.Equal(t, "u-g1", updated.ApproverID)
	assert.Equal(t, 50000.0, updated.TotalAmount)
}

func TestUpdateDraft_NotEditableAfterSubmit(t *testing.T) {
	f := newRequestFixture(t, nil, nil)

	req, err := f.svc.CreateAndSubmit(context.Background(), requester(), validInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateDraft(context.Background(), "u1", req.ID, validInput())
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStateConflict, apperr.CodeOf(err))
}

func TestGet_ViewGuard(t *testing.T) {
	f := newRequestFixture(t, nil, nil)
	draft, err := f.svc.CreateDraft(context.Background(), requester(), validInput())
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), requester(), draft.ID)
	require.NoError(t, err)

	planner := &entity.User{ID: "p1", Role: "planificador"}
	_, err = f.svc.Get(context.Background(), planner, draft.ID)
	require.NoError(t, err)

	stranger := &entity.User{ID: "u9", Role: "solicitante"}
	_, err = f.svc.Get(context.Background(), stranger, draft.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
}
