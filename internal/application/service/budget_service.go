package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spmflow/spm-workflow/internal/apperr"
	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// IncreaseInput is a request to incorporate funds into a sector budget
type IncreaseInput struct {
	Centro string  `json:"centro"`
	Sector string  `json:"sector"`
	Amount float64 `json:"monto_usd"`
	Motive string  `json:"motivo"`
}

// BudgetService runs the budget incorporation workflow: middle management
// requests an increase, upper management resolves it, and approvals feed the
// per-(centro, sector) ledger additively.
type BudgetService interface {
	RequestIncrease(ctx context.Context, actor *entity.User, input IncreaseInput) (*entity.BudgetIncrease, error)
	ResolveIncrease(ctx context.Context, actor *entity.User, id int64, action, comment string) (*entity.BudgetIncrease, error)
	ListIncreases(ctx context.Context, actor *entity.User) ([]*entity.BudgetIncrease, error)
	GetLedger(ctx context.Context, centro, sector string) (*entity.BudgetLedgerEntry, error)
}

type budgetServiceImpl struct {
	budgets   port.BudgetRepository
	emitter   port.NotificationEmitter
	txManager port.TransactionManager
	logger    Logger
}

// NewBudgetService creates a new BudgetService
func NewBudgetService(
	budgets port.BudgetRepository,
	emitter port.NotificationEmitter,
	txManager port.TransactionManager,
	logger Logger,
) BudgetService {
	return &budgetServiceImpl{
		budgets:   budgets,
		emitter:   emitter,
		txManager: txManager,
		logger:    logger,
	}
}

// RequestIncrease files a pending budget increase for one of the actor's
// assigned centros
func (s *budgetServiceImpl) RequestIncrease(ctx context.Context, actor *entity.User, input IncreaseInput) (*entity.BudgetIncrease, error) {
	if !actor.Capabilities().CanRequestIncrease {
		return nil, apperr.Forbidden("user %s cannot request budget increases", actor.ID)
	}
	if input.Amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	if strings.TrimSpace(input.Centro) == "" || strings.TrimSpace(input.Sector) == "" {
		return nil, apperr.Validation("centro and sector are required")
	}
	if len(strings.TrimSpace(input.Motive)) < 5 {
		return nil, apperr.Validation("motive must be at least 5 characters")
	}
	if !actor.HasCentro(input.Centro) {
		return nil, apperr.Validation("centro %s is not assigned to user %s", input.Centro, actor.ID)
	}

	inc := &entity.BudgetIncrease{
		Centro:      input.Centro,
		Sector:      input.Sector,
		Amount:      entity.Round2(input.Amount),
		Motive:      input.Motive,
		Status:      entity.IncreaseStatusPending,
		RequesterID: strings.ToLower(actor.ID),
	}
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.budgets.CreateIncrease(txCtx, inc)
	})
	if err != nil {
		return nil, fmt.Errorf("create increase: %w", err)
	}

	s.logger.Info("Budget increase requested", "increase_id", inc.ID, "centro", inc.Centro, "sector", inc.Sector, "amount", inc.Amount)
	return inc, nil
}

// ResolveIncrease decides a pending increase. An approval credits the
// (centro, sector) ledger in the same transaction that flips the row.
func (s *budgetServiceImpl) ResolveIncrease(ctx context.Context, actor *entity.User, id int64, action, comment string) (*entity.BudgetIncrease, error) {
	if !actor.Capabilities().CanApproveIncrease {
		return nil, apperr.Forbidden("user %s cannot resolve budget increases", actor.ID)
	}
	if action != entity.ActionApprove && action != entity.ActionReject {
		return nil, apperr.Validation("action must be %s or %s", entity.ActionApprove, entity.ActionReject)
	}

	var inc *entity.BudgetIncrease
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		inc, err = s.budgets.GetIncrease(txCtx, id)
		if err != nil {
			return fmt.Errorf("get increase %d: %w", id, err)
		}
		if inc == nil {
			return apperr.NotFound("budget increase %d not found", id)
		}
		if inc.Status != entity.IncreaseStatusPending {
			return apperr.StateConflict("budget increase %d already resolved as %s", id, inc.Status)
		}

		now := time.Now()
		inc.ResolverID = strings.ToLower(actor.ID)
		inc.Comment = comment
		inc.ResolvedAt = &now
		if action == entity.ActionApprove {
			inc.Status = entity.IncreaseStatusApproved
			if err := s.budgets.AddToLedger(txCtx, inc.Centro, inc.Sector, inc.Amount); err != nil {
				return fmt.Errorf("credit ledger: %w", err)
			}
		} else {
			inc.Status = entity.IncreaseStatusRejected
		}
		if err := s.budgets.UpdateIncrease(txCtx, inc); err != nil {
			return fmt.Errorf("persist resolution: %w", err)
		}

		message := fmt.Sprintf("Incorporación de presupuesto #%d %s (%s/%s)", inc.ID, inc.Status, inc.Centro, inc.Sector)
		return s.emitter.Emit(txCtx, inc.RequesterID, 0, message)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Budget increase resolved", "increase_id", inc.ID, "status", inc.Status, "resolver", inc.ResolverID)
	return inc, nil
}

// ListIncreases returns increases visible to the actor: resolvers see all
// rows for their centros, requesters see their own
func (s *budgetServiceImpl) ListIncreases(ctx context.Context, actor *entity.User) ([]*entity.BudgetIncrease, error) {
	caps := actor.Capabilities()
	if caps.CanApproveIncrease || caps.CanAdminister {
		return s.budgets.ListIncreases(ctx, actor.AssignedCentros(), "")
	}
	return s.budgets.ListIncreases(ctx, nil, strings.ToLower(actor.ID))
}

// GetLedger returns the allocation for one (centro, sector) pair. A missing
// row reads as a zero ledger.
func (s *budgetServiceImpl) GetLedger(ctx context.Context, centro, sector string) (*entity.BudgetLedgerEntry, error) {
	entry, err := s.budgets.GetLedger(ctx, centro, sector)
	if err != nil {
		return nil, fmt.Errorf("get ledger %s/%s: %w", centro, sector, err)
	}
	if entry == nil {
		return &entity.BudgetLedgerEntry{Centro: centro, Sector: sector}, nil
	}
	return entry, nil
}
