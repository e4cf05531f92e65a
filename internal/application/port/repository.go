package port

import (
	"context"

	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// TransactionManager provides transactional boundaries for workflow
// operations. Every transition executes as one transaction that acquires the
// write lock before reading state (begin-immediate semantics).
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// RequestRepository defines persistence operations for Request
type RequestRepository interface {
	Create(ctx context.Context, req *entity.Request) error
	GetByID(ctx context.Context, id int64) (*entity.Request, error)
	Update(ctx context.Context, req *entity.Request) error
	UpdateTotal(ctx context.Context, id int64, total float64) error
	ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error)
}

// TreatmentRepository defines persistence operations for TreatmentDecision.
// Rows are owned by the request they reference; at most one per item index.
type TreatmentRepository interface {
	Upsert(ctx context.Context, decision *entity.TreatmentDecision) error
	ListByRequest(ctx context.Context, requestID int64) ([]*entity.TreatmentDecision, error)
	DeleteByRequest(ctx context.Context, requestID int64) error
}

// UserRepository is the read-only view of the user directory
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
}

// PlannerRuleRepository exposes active assignment rules, ordered by creation
type PlannerRuleRepository interface {
	ListActiveByCentro(ctx context.Context, centro string) ([]*entity.PlannerRule, error)
}

// BudgetRepository defines persistence operations for the budget
// incorporation workflow and its ledger
type BudgetRepository interface {
	CreateIncrease(ctx context.Context, inc *entity.BudgetIncrease) error
	GetIncrease(ctx context.Context, id int64) (*entity.BudgetIncrease, error)
	UpdateIncrease(ctx context.Context, inc *entity.BudgetIncrease) error
	ListIncreases(ctx context.Context, centros []string, requesterID string) ([]*entity.BudgetIncrease, error)
	GetLedger(ctx context.Context, centro, sector string) (*entity.BudgetLedgerEntry, error)
	AddToLedger(ctx context.Context, centro, sector string, amount float64) error
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id int64, recipientID string) error
}
