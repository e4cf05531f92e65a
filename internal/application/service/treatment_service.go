package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spmflow/spm-workflow/internal/apperr"
	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
	"github.com/spmflow/spm-workflow/internal/domain/workflow"
)

// Rejection motive bounds in characters
const (
	RejectMotiveMin = 3
	RejectMotiveMax = 500
)

// DecisionInput is one planner decision for an item of a request
type DecisionInput struct {
	ItemIndex          int      `json:"item_index"`
	Kind               string   `json:"decision"`
	ApprovedQty        int      `json:"cantidad_aprobada"`
	EquivalentCode     string   `json:"codigo_equivalente"`
	SuggestedSupplier  string   `json:"proveedor_sugerido"`
	EstimatedUnitPrice *float64 `json:"precio_unitario_estimado"`
	Comment            string   `json:"comentario"`
}

// TreatmentService covers the planner's side of the lifecycle: claiming and
// releasing requests, recording per-item decisions, and closing treatment.
// The request total tracks the decision ledger while treatment is open.
type TreatmentService interface {
	Claim(ctx context.Context, actor *entity.User, id int64) (*entity.Request, error)
	Release(ctx context.Context, actor *entity.User, id int64) (*entity.Request, error)
	UpsertDecisions(ctx context.Context, actor *entity.User, id int64, inputs []DecisionInput) (*entity.Request, error)
	ListDecisions(ctx context.Context, actor *entity.User, id int64) ([]*entity.TreatmentDecision, error)
	Finalize(ctx context.Context, actor *entity.User, id int64) (*entity.Request, error)
	Reject(ctx context.Context, actor *entity.User, id int64, motive string) (*entity.Request, error)
}

type treatmentServiceImpl struct {
	requests   port.RequestRepository
	treatments port.TreatmentRepository
	emitter    port.NotificationEmitter
	txManager  port.TransactionManager
	lifecycle  workflow.StateMachineBuilder
	logger     Logger
}

// NewTreatmentService creates a new TreatmentService
func NewTreatmentService(
	requests port.RequestRepository,
	treatments port.TreatmentRepository,
	emitter port.NotificationEmitter,
	txManager port.TransactionManager,
	logger Logger,
) TreatmentService {
	return &treatmentServiceImpl{
		requests:   requests,
		treatments: treatments,
		emitter:    emitter,
		txManager:  txManager,
		lifecycle:  workflow.NewRequestLifecycle(),
		logger:     logger,
	}
}

// Claim assigns the acting planner to an approved or unassigned request
func (s *treatmentServiceImpl) Claim(ctx context.Context, actor *entity.User, id int64) (*entity.Request, error) {
	if !actor.Capabilities().CanPlan {
		return nil, apperr.Forbidden("user %s cannot claim requests", actor.ID)
	}

	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.load(txCtx, id)
		if err != nil {
			return err
		}
		if req.PlannerID != "" && !strings.EqualFold(req.PlannerID, actor.ID) {
			return apperr.StateConflict("request %d is already assigned to %s", id, req.PlannerID)
		}
		if req.Status == workflow.StateApproved {
			machine := s.lifecycle.Build(req.Status)
			if err := machine.Fire(txCtx, workflow.TriggerAssignPlanner); err != nil {
				return transitionErr(err, req)
			}
			req.Status = machine.State()
		} else if req.Status != workflow.StateInTreatment {
			return apperr.StateConflict("request %d cannot be claimed in status %s", id, req.Status)
		}
		req.PlannerID = strings.ToLower(actor.ID)
		return s.requests.Update(txCtx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request claimed", "request_id", req.ID, "planner", req.PlannerID)
	return req, nil
}

// Release detaches the acting planner; the request stays in treatment and
// becomes claimable by any planner
func (s *treatmentServiceImpl) Release(ctx context.Context, actor *entity.User, id int64) (*entity.Request, error) {
	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadAssigned(txCtx, id, actor)
		if err != nil {
			return err
		}
		req.PlannerID = ""
		return s.requests.Update(txCtx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Request released", "request_id", req.ID, "planner", actor.ID)
	return req, nil
}

// UpsertDecisions records or replaces planner decisions for the given item
// indexes and recomputes the running total in the same transaction
func (s *treatmentServiceImpl) UpsertDecisions(ctx context.Context, actor *entity.User, id int64, inputs []DecisionInput) (*entity.Request, error) {
	if len(inputs) == 0 {
		return nil, apperr.Validation("at least one decision is required")
	}

	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadAssigned(txCtx, id, actor)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, in := range inputs {
			if in.ItemIndex < 0 || in.ItemIndex >= len(req.Payload.Items) {
				return apperr.Validation("item index %d out of range", in.ItemIndex)
			}
			if !entity.IsValidDecisionKind(in.Kind) {
				return apperr.Validation("unknown decision kind %q", in.Kind)
			}
			if in.ApprovedQty <= 0 {
				return apperr.Validation("approved quantity must be positive for item %d", in.ItemIndex)
			}
			if in.Kind == entity.DecisionEquivalent && strings.TrimSpace(in.EquivalentCode) == "" {
				return apperr.Validation("equivalent decision for item %d needs an equivalent code", in.ItemIndex)
			}
			decision := &entity.TreatmentDecision{
				RequestID:          id,
				ItemIndex:          in.ItemIndex,
				Kind:               in.Kind,
				ApprovedQty:        in.ApprovedQty,
				EquivalentCode:     in.EquivalentCode,
				SuggestedSupplier:  in.SuggestedSupplier,
				EstimatedUnitPrice: in.EstimatedUnitPrice,
				Comment:            in.Comment,
				UpdatedBy:          strings.ToLower(actor.ID),
				UpdatedAt:          now,
			}
			if err := s.treatments.Upsert(txCtx, decision); err != nil {
				return fmt.Errorf("upsert decision for item %d: %w", in.ItemIndex, err)
			}
		}
		return s.recomputeTotal(txCtx, req)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Treatment decisions recorded", "request_id", req.ID, "count", len(inputs), "total", req.TotalAmount)
	return req, nil
}

// ListDecisions returns the decision ledger for a request
func (s *treatmentServiceImpl) ListDecisions(ctx context.Context, actor *entity.User, id int64) ([]*entity.TreatmentDecision, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, req) {
		return nil, apperr.Forbidden("user %s cannot view request %d", actor.ID, id)
	}
	return s.treatments.ListByRequest(ctx, id)
}

// Finalize closes treatment. Items without an explicit decision get a default
// purchase decision at the original quantity and price, so the final total
// always reflects a complete ledger.
func (s *treatmentServiceImpl) Finalize(ctx context.Context, actor *entity.User, id int64) (*entity.Request, error) {
	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadAssigned(txCtx, id, actor)
		if err != nil {
			return err
		}

		machine := s.lifecycle.Build(req.Status)
		if err := machine.Fire(txCtx, workflow.TriggerFinalizeTreatment); err != nil {
			return transitionErr(err, req)
		}

		if err := s.fillDefaults(txCtx, req, actor); err != nil {
			return err
		}
		if err := s.recomputeTotal(txCtx, req); err != nil {
			return err
		}

		req.Status = machine.State()
		if err := s.requests.Update(txCtx, req); err != nil {
			return fmt.Errorf("persist finalize: %w", err)
		}
		return s.notifyClosed(txCtx, req, fmt.Sprintf("Solicitud #%d finalizada", req.ID))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Treatment finalized", "request_id", req.ID, "total", req.TotalAmount)
	return req, nil
}

// Reject closes treatment negatively with a mandatory motive
func (s *treatmentServiceImpl) Reject(ctx context.Context, actor *entity.User, id int64, motive string) (*entity.Request, error) {
	motive = strings.TrimSpace(motive)
	if len(motive) < RejectMotiveMin || len(motive) > RejectMotiveMax {
		return nil, apperr.Validation("motive must be between %d and %d characters", RejectMotiveMin, RejectMotiveMax)
	}

	var req *entity.Request
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		req, err = s.loadAssigned(txCtx, id, actor)
		if err != nil {
			return err
		}

		machine := s.lifecycle.Build(req.Status)
		if err := machine.Fire(txCtx, workflow.TriggerRejectTreatment); err != nil {
			return transitionErr(err, req)
		}

		now := time.Now()
		req.Status = machine.State()
		req.Payload.Decision = &entity.DecisionRecord{
			Action:    entity.ActionReject,
			DecidedBy: strings.ToLower(actor.ID),
			DecidedAt: now,
			Comment:   motive,
		}
		if err := s.requests.Update(txCtx, req); err != nil {
			return fmt.Errorf("persist treatment rejection: %w", err)
		}
		return s.notifyClosed(txCtx, req, fmt.Sprintf("Solicitud #%d rechazada en tratamiento: %s", req.ID, motive))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Treatment rejected", "request_id", req.ID)
	return req, nil
}

// fillDefaults creates a purchase decision for every item the planner left
// undecided, priced at the original unit price
func (s *treatmentServiceImpl) fillDefaults(ctx context.Context, req *entity.Request, actor *entity.User) error {
	existing, err := s.treatments.ListByRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("list decisions: %w", err)
	}
	decided := make(map[int]bool, len(existing))
	for _, d := range existing {
		decided[d.ItemIndex] = true
	}

	now := time.Now()
	for idx, item := range req.Payload.Items {
		if decided[idx] {
			continue
		}
		price := item.UnitPrice
		decision := &entity.TreatmentDecision{
			RequestID:          req.ID,
			ItemIndex:          idx,
			Kind:               entity.DecisionPurchase,
			ApprovedQty:        item.Quantity,
			EstimatedUnitPrice: &price,
			UpdatedBy:          strings.ToLower(actor.ID),
			UpdatedAt:          now,
		}
		if err := s.treatments.Upsert(ctx, decision); err != nil {
			return fmt.Errorf("default decision for item %d: %w", idx, err)
		}
	}
	return nil
}

// recomputeTotal rebuilds the request total from the decision ledger.
// Undecided items contribute nothing until decided or defaulted.
func (s *treatmentServiceImpl) recomputeTotal(ctx context.Context, req *entity.Request) error {
	decisions, err := s.treatments.ListByRequest(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("list decisions: %w", err)
	}

	total := 0.0
	for _, d := range decisions {
		if d.ItemIndex < 0 || d.ItemIndex >= len(req.Payload.Items) {
			continue
		}
		total += d.Contribution(req.Payload.Items[d.ItemIndex])
	}
	total = entity.Round2(total)

	if err := s.requests.UpdateTotal(ctx, req.ID, total); err != nil {
		return fmt.Errorf("update total: %w", err)
	}
	req.TotalAmount = total
	return nil
}

func (s *treatmentServiceImpl) notifyClosed(ctx context.Context, req *entity.Request, message string) error {
	for _, dest := range []string{req.OwnerID, req.ApproverID} {
		if dest == "" {
			continue
		}
		if err := s.emitter.Emit(ctx, dest, req.ID, message); err != nil {
			return fmt.Errorf("notify close: %w", err)
		}
	}
	return nil
}

func (s *treatmentServiceImpl) load(ctx context.Context, id int64) (*entity.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get request %d: %w", id, err)
	}
	if req == nil {
		return nil, apperr.NotFound("request %d not found", id)
	}
	return req, nil
}

// loadAssigned loads a request that is in treatment and assigned to the actor
func (s *treatmentServiceImpl) loadAssigned(ctx context.Context, id int64, actor *entity.User) (*entity.Request, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != workflow.StateInTreatment {
		return nil, apperr.StateConflict("request %d is not in treatment", id)
	}
	if !strings.EqualFold(req.PlannerID, actor.ID) {
		return nil, apperr.Forbidden("user %s is not the planner of request %d", actor.ID, id)
	}
	return req, nil
}
