package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spmflow/spm-workflow/internal/apperr"
	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
	"github.com/spmflow/spm-workflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DraftInput carries the owner-editable fields of a requisition
type DraftInput struct {
	Centro         string        `json:"centro"`
	Sector         string        `json:"sector"`
	CentroCostos   string        `json:"centro_costos"`
	AlmacenVirtual string        `json:"almacen_virtual"`
	Criticality    string        `json:"criticidad"`
	NeedBy         string        `json:"fecha_necesidad"`
	Justification  string        `json:"justificacion"`
	Items          []entity.Item `json:"items"`
}

// RequestService orchestrates the requisition lifecycle: drafts, submission,
// the approval decision, and the cancellation sub-workflow. Every mutation
// re-reads the current status inside the transaction that writes it.
type RequestService interface {
	CreateDraft(ctx context.Context, owner *entity.User, input DraftInput) (*entity.Request, error)
	UpdateDraft(ctx context.Context, actorID string, id int64, input DraftInput) (*entity.Request, error)
	Submit(ctx context.Context, owner *entity.User, id int64, input DraftInput) (*entity.Request, error)
	CreateAndSubmit(ctx context.Context, owner *entity.User, input DraftInput) (*entity.Request, error)
	Decide(ctx context.Context, actor *entity.User, id int64, action, comment string) (*entity.Request, error)
	RequestCancel(ctx context.Context, actorID string, id int64, reason string) (*entity.Request, error)
	DecideCancel(ctx context.Context, actor *entity.User, id int64, action, comment string) (*entity.Request, error)
	Get(ctx context.Context, actor *entity.User, id int64) (*entity.Request, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error)
}

type requestServiceImpl struct {
	requests   port.RequestRepository
	treatments port.TreatmentRepository
	approvers  *ApproverResolver
	planners   *PlannerAssignmentResolver
	emitter    port.NotificationEmitter
	txManager  port.TransactionManager
	lifecycle  workflow.StateMachineBuilder
	logger     Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	requests port.RequestRepository,
	treatments port.TreatmentRepository,
	approvers *ApproverResolver,
	planners *PlannerAssignmentResolver,
	emitter port.NotificationEmitter,
	txManager port.TransactionManager,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		requests:   requests,
		treatments: treatments,
		approvers:  approvers,
		planners:   planners,
		emitter:    emitter,
		txManager:  txManager,
		lifecycle:  workflow.NewRequestLifecycle(),
		logger:     logger,
	}
}

func (s *requestServiceImpl) validateHeader(input *DraftInput) error {
	if strings.TrimSpace(input.Centro) == "" {
		return apperr.Validation("centro is required")
	}
	if strings.TrimSpace(input.Sector) == "" {
		return apperr.Validation("sector is required")
	}
	if len(strings.TrimSpace(input.Justification)) < 5 {
		return apperr.Validation("justification must be at least 5 characters")
	}
	switch input.Criticality {
	case "":
		input.Criticality = entity.CriticalityNormal
	case entity.CriticalityNormal, entity.CriticalityHigh:
	default:
		return apperr.Validation("criticality must be %s or %s", entity.CriticalityNormal, entity.CriticalityHigh)
	}
	return nil
}

// CreateDraft creates an owner-editable draft. Items are optional at this
// stage; the approver is pre-resolved so the owner can see who will decide.
func (s *requestServiceImpl) CreateDraft(ctx context.Context, owner *entity.User, input DraftInput) (*entity.Request, error) {
	if err := s.validateHeader(&input); err != nil {
		return nil, err
	}

	items, total := entity.NormalizeItems(input.Items)
	approver, err := s.approvers.Resolve(ctx, owner, total)
	if err != nil {
		return nil, err
	}

	req := &entity.Request{
		OwnerID:        strings.ToLower(owner.ID),
		Centro:         input.Centro,
		Sector:         input.Sector,
		CentroCostos:   input.CentroCostos,
		AlmacenVirtual: input.AlmacenVirtual,
		Criticality:    input.Criticality,
		NeedBy:         input.NeedBy,
		Justification:  input.Justification,
		Status:         workflow.StateDraft,
		ApproverID:     approver,
		TotalAmount:    total,
		Payload:        entity.RequestPayload{Version: entity.PayloadVersion, Items: items},
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.requests.Create(txCtx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	s.logger.Info("Draft created", "request_id", req.ID, "owner", req.OwnerID)
	return req, nil
}

// UpdateDraft merges owner edits into a draft-like request. When the total
// moves by a material amount the approver is re-resolved.
func (s *requestServiceImpl) UpdateDraft(ctx context.Context, actorID string, id int64, input DraftInput) (*entity.Request, error) {
	if err := s.validateHeader(&input); err != nil {
		return nil, err
	}

	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadOwned(txCtx, id, actorID, "edit")
		if err != nil {
			return err
		}
		if req.Status != workflow.StateDraft && req.Status != workflow.StateCancelRejected {
			return apperr.StateConflict("request %d is not editable in status %s", id, req.Status)
		}

		req.Centro = input.Centro
		req.Sector = input.Sector
		req.CentroCostos = input.CentroCostos
		req.AlmacenVirtual = input.AlmacenVirtual
		req.Criticality = input.Criticality
		req.NeedBy = input.NeedBy
		req.Justification = input.Justification

		if len(input.Items) > 0 {
			items, total := entity.NormalizeItems(input.Items)
			if entity.AmountChanged(req.TotalAmount, total) {
				owner, err := s.approvers.users.GetByID(txCtx, req.OwnerID)
				if err != nil {
					return fmt.Errorf("load owner: %w", err)
				}
				approver, err := s.approvers.Resolve(txCtx, owner, total)
				if err != nil {
					return err
				}
				req.ApproverID = approver
			}
			req.Payload.Items = items
			req.TotalAmount = total
		}
		return s.requests.Update(txCtx, req)
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Submit moves a draft (or a request whose cancellation was rejected) to
// pending approval: computes the total, resolves the approver, and notifies.
func (s *requestServiceImpl) Submit(ctx context.Context, owner *entity.User, id int64, input DraftInput) (*entity.Request, error) {
	if err := s.validateHeader(&input); err != nil {
		return nil, err
	}

	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadOwned(txCtx, id, owner.ID, "submit")
		if err != nil {
			return err
		}
		return s.finalize(txCtx, req, owner, input)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request submitted", "request_id", req.ID, "total", req.TotalAmount, "approver", req.ApproverID)
	return req, nil
}

// CreateAndSubmit creates and submits a requisition in one step
func (s *requestServiceImpl) CreateAndSubmit(ctx context.Context, owner *entity.User, input DraftInput) (*entity.Request, error) {
	if err := s.validateHeader(&input); err != nil {
		return nil, err
	}

	req := &entity.Request{
		OwnerID: strings.ToLower(owner.ID),
		Status:  workflow.StateDraft,
		Payload: entity.RequestPayload{Version: entity.PayloadVersion},
	}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return s.finalize(txCtx, req, owner, input)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request created and submitted", "request_id", req.ID, "total", req.TotalAmount)
	return req, nil
}

// finalize applies the submit transition to a loaded request inside the
// caller's transaction
func (s *requestServiceImpl) finalize(ctx context.Context, req *entity.Request, owner *entity.User, input DraftInput) error {
	resubmit := req.Status == workflow.StateCancelRejected

	machine := s.lifecycle.Build(req.Status)
	if err := machine.Fire(ctx, workflow.TriggerSubmit); err != nil {
		return transitionErr(err, req)
	}

	// A resubmission starts a fresh treatment round; decisions from the
	// round before the cancellation attempt would otherwise survive into
	// the next finalize
	if resubmit {
		if err := s.treatments.DeleteByRequest(ctx, req.ID); err != nil {
			return fmt.Errorf("clear treatment ledger: %w", err)
		}
	}

	items, total := entity.NormalizeItems(input.Items)
	if len(items) == 0 {
		return apperr.Validation("request must include at least one item")
	}

	approver, err := s.approvers.Resolve(ctx, owner, total)
	if err != nil {
		return err
	}

	now := time.Now()
	req.Centro = input.Centro
	req.Sector = input.Sector
	req.CentroCostos = input.CentroCostos
	req.AlmacenVirtual = input.AlmacenVirtual
	req.Criticality = input.Criticality
	req.NeedBy = input.NeedBy
	req.Justification = input.Justification
	req.Status = machine.State()
	req.ApproverID = approver
	req.TotalAmount = total
	req.NotifiedAt = &now
	req.Payload.Items = items
	req.Payload.Decision = nil
	req.Payload.Cancel = nil
	req.Payload.CancelReason = ""
	req.Payload.CancelledAt = nil

	if err := s.requests.Update(ctx, req); err != nil {
		return fmt.Errorf("persist submit: %w", err)
	}
	if approver != "" {
		if err := s.emitter.Emit(ctx, approver, req.ID, fmt.Sprintf("Solicitud #%d pendiente de aprobación", req.ID)); err != nil {
			return fmt.Errorf("notify approver: %w", err)
		}
	}
	return nil
}

// Decide records the approver's decision. Approving resolves the planner:
// the request lands in treatment when a rule matches, otherwise it stays
// approved and unassigned until a planner claims it.
func (s *requestServiceImpl) Decide(ctx context.Context, actor *entity.User, id int64, action, comment string) (*entity.Request, error) {
	if action != entity.ActionApprove && action != entity.ActionReject {
		return nil, apperr.Validation("action must be %s or %s", entity.ActionApprove, entity.ActionReject)
	}

	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.load(txCtx, id)
		if err != nil {
			return err
		}
		if !canResolve(actor, req) {
			return apperr.Forbidden("user %s cannot decide request %d", actor.ID, id)
		}

		trigger := workflow.TriggerReject
		planner := ""
		if action == entity.ActionApprove {
			trigger = workflow.TriggerApprove
			planner, err = s.planners.Resolve(txCtx, req.Centro, req.Sector, req.AlmacenVirtual)
			if err != nil {
				return err
			}
		}

		machine := s.lifecycle.Build(req.Status)
		fireCtx := workflow.WithPlannerAssigned(txCtx, planner != "")
		if err := machine.Fire(fireCtx, trigger); err != nil {
			return transitionErr(err, req)
		}

		now := time.Now()
		req.Status = machine.State()
		req.ApproverID = strings.ToLower(actor.ID)
		if planner != "" {
			req.PlannerID = planner
		}
		req.NotifiedAt = &now
		req.Payload.Decision = &entity.DecisionRecord{
			Action:    action,
			DecidedBy: strings.ToLower(actor.ID),
			DecidedAt: now,
			Comment:   comment,
		}
		req.Payload.Cancel = nil

		if err := s.requests.Update(txCtx, req); err != nil {
			return fmt.Errorf("persist decision: %w", err)
		}

		verb := "aprobada"
		if action == entity.ActionReject {
			verb = "rechazada"
		}
		message := fmt.Sprintf("Solicitud #%d %s", req.ID, verb)
		for _, dest := range []string{req.OwnerID, req.PlannerID} {
			if dest == "" {
				continue
			}
			if err := s.emitter.Emit(txCtx, dest, req.ID, message); err != nil {
				return fmt.Errorf("notify decision: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request decided", "request_id", req.ID, "action", action, "status", string(req.Status))
	return req, nil
}

// RequestCancel starts the cancellation workflow. Draft-like requests cancel
// immediately; anything else needs a counter-decision from the approver or
// planner and moves to cancellation-pending.
func (s *requestServiceImpl) RequestCancel(ctx context.Context, actorID string, id int64, reason string) (*entity.Request, error) {
	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadOwned(txCtx, id, actorID, "cancel")
		if err != nil {
			return err
		}

		machine := s.lifecycle.Build(req.Status)
		now := time.Now()
		if req.Status == workflow.StateDraft || req.Status == workflow.StateCancelRejected {
			if err := machine.Fire(txCtx, workflow.TriggerDirectCancel); err != nil {
				return transitionErr(err, req)
			}
			req.Status = machine.State()
			req.Payload.Cancel = nil
			req.Payload.CancelReason = reason
			req.Payload.CancelledAt = &now
			return s.requests.Update(txCtx, req)
		}

		if err := machine.Fire(txCtx, workflow.TriggerRequestCancel); err != nil {
			return transitionErr(err, req)
		}
		req.Status = machine.State()
		req.Payload.Cancel = &entity.CancelRequest{
			Status:      entity.CancelStatusPending,
			Reason:      reason,
			RequestedBy: strings.ToLower(actorID),
			RequestedAt: now,
		}
		if reason != "" {
			req.Payload.CancelReason = reason
		}
		if err := s.requests.Update(txCtx, req); err != nil {
			return fmt.Errorf("persist cancel request: %w", err)
		}

		counterpart := req.ApproverID
		if counterpart == "" {
			counterpart = req.PlannerID
		}
		if counterpart != "" {
			return s.emitter.Emit(txCtx, counterpart, req.ID, fmt.Sprintf("Solicitud #%d solicita cancelación", req.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cancellation requested", "request_id", req.ID, "status", string(req.Status))
	return req, nil
}

// DecideCancel resolves a pending cancellation. Approving cancels the
// request; rejecting re-admits it to submission as if it were a draft.
func (s *requestServiceImpl) DecideCancel(ctx context.Context, actor *entity.User, id int64, action, comment string) (*entity.Request, error) {
	if action != entity.ActionApprove && action != entity.ActionReject {
		return nil, apperr.Validation("action must be %s or %s", entity.ActionApprove, entity.ActionReject)
	}

	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.load(txCtx, id)
		if err != nil {
			return err
		}
		if !canDecideCancel(actor, req) {
			return apperr.Forbidden("user %s cannot decide cancellation of request %d", actor.ID, id)
		}

		trigger := workflow.TriggerApproveCancel
		if action == entity.ActionReject {
			trigger = workflow.TriggerRejectCancel
		}
		machine := s.lifecycle.Build(req.Status)
		if err := machine.Fire(txCtx, trigger); err != nil {
			return transitionErr(err, req)
		}

		now := time.Now()
		cancel := req.Payload.Cancel
		if cancel == nil {
			cancel = &entity.CancelRequest{RequestedBy: req.OwnerID, RequestedAt: now}
		}
		cancel.DecidedBy = strings.ToLower(actor.ID)
		cancel.DecidedAt = &now
		cancel.DecisionComment = comment

		req.Status = machine.State()
		message := fmt.Sprintf("Solicitud #%d: cancelación rechazada", req.ID)
		if action == entity.ActionApprove {
			cancel.Status = entity.CancelStatusApproved
			req.Payload.CancelledAt = &now
			message = fmt.Sprintf("Solicitud #%d cancelada", req.ID)
		} else {
			cancel.Status = entity.CancelStatusRejected
		}
		req.Payload.Cancel = cancel

		if err := s.requests.Update(txCtx, req); err != nil {
			return fmt.Errorf("persist cancel decision: %w", err)
		}
		return s.emitter.Emit(txCtx, req.OwnerID, req.ID, message)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Cancellation decided", "request_id", req.ID, "action", action, "status", string(req.Status))
	return req, nil
}

// Get returns a request when the actor is its owner, approver, or planner,
// or holds planner/admin capabilities
func (s *requestServiceImpl) Get(ctx context.Context, actor *entity.User, id int64) (*entity.Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, req) {
		return nil, apperr.Forbidden("user %s cannot view request %d", actor.ID, id)
	}
	return req, nil
}

// ListByOwner returns the requests created by the given user
func (s *requestServiceImpl) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error) {
	return s.requests.ListByOwner(ctx, strings.ToLower(ownerID))
}

func (s *requestServiceImpl) load(ctx context.Context, id int64) (*entity.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	if req == nil {
		return nil, apperr.NotFound("request %d not found", id)
	}
	return req, nil
}

func (s *requestServiceImpl) loadOwned(ctx context.Context, id int64, actorID, verb string) (*entity.Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(req.OwnerID, actorID) {
		return nil, apperr.Forbidden("user %s cannot %s request %d", actorID, verb, id)
	}
	return req, nil
}

// transitionErr maps machine transition failures to a state conflict so
// callers see a 409 instead of an internal error
func transitionErr(err error, req *entity.Request) error {
	if errors.Is(err, workflow.ErrInvalidTransition) || errors.Is(err, workflow.ErrGuardFailed) {
		return apperr.StateConflict("request %d does not allow this transition from status %s", req.ID, req.Status)
	}
	return err
}

func isActor(actor *entity.User, id string) bool {
	return id != "" && strings.EqualFold(actor.ID, id)
}

func canView(actor *entity.User, req *entity.Request) bool {
	if strings.EqualFold(actor.ID, req.OwnerID) || isActor(actor, req.ApproverID) || isActor(actor, req.PlannerID) {
		return true
	}
	return actor.Capabilities().CanPlan
}

func canResolve(actor *entity.User, req *entity.Request) bool {
	if isActor(actor, req.ApproverID) || isActor(actor, req.PlannerID) {
		return true
	}
	return actor.Capabilities().CanApprove
}

func canDecideCancel(actor *entity.User, req *entity.Request) bool {
	if isActor(actor, req.ApproverID) || isActor(actor, req.PlannerID) {
		return true
	}
	return actor.Capabilities().CanPlan
}
