package service

import (
	"context"

	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

type mockRequestRepo struct {
	CreateFunc      func(ctx context.Context, req *entity.Request) error
	GetByIDFunc     func(ctx context.Context, id int64) (*entity.Request, error)
	UpdateFunc      func(ctx context.Context, req *entity.Request) error
	UpdateTotalFunc func(ctx context.Context, id int64, total float64) error
	ListByOwnerFunc func(ctx context.Context, ownerID string) ([]*entity.Request, error)
}

func (m *mockRequestRepo) Create(ctx context.Context, req *entity.Request) error {
	return m.CreateFunc(ctx, req)
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockRequestRepo) Update(ctx context.Context, req *entity.Request) error {
	return m.UpdateFunc(ctx, req)
}

func (m *mockRequestRepo) UpdateTotal(ctx context.Context, id int64, total float64) error {
	return m.UpdateTotalFunc(ctx, id, total)
}

func (m *mockRequestRepo) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error) {
	return m.ListByOwnerFunc(ctx, ownerID)
}

type mockTreatmentRepo struct {
	UpsertFunc          func(ctx context.Context, decision *entity.TreatmentDecision) error
	ListByRequestFunc   func(ctx context.Context, requestID int64) ([]*entity.TreatmentDecision, error)
	DeleteByRequestFunc func(ctx context.Context, requestID int64) error
}

func (m *mockTreatmentRepo) Upsert(ctx context.Context, decision *entity.TreatmentDecision) error {
	return m.UpsertFunc(ctx, decision)
}

func (m *mockTreatmentRepo) ListByRequest(ctx context.Context, requestID int64) ([]*entity.TreatmentDecision, error) {
	return m.ListByRequestFunc(ctx, requestID)
}

func (m *mockTreatmentRepo) DeleteByRequest(ctx context.Context, requestID int64) error {
	if m.DeleteByRequestFunc == nil {
		return nil
	}
	return m.DeleteByRequestFunc(ctx, requestID)
}

type mockUserRepo struct {
	GetByIDFunc    func(ctx context.Context, id string) (*entity.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*entity.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.GetByEmailFunc(ctx, email)
}

type mockRuleRepo struct {
	ListActiveByCentroFunc func(ctx context.Context, centro string) ([]*entity.PlannerRule, error)
}

func (m *mockRuleRepo) ListActiveByCentro(ctx context.Context, centro string) ([]*entity.PlannerRule, error) {
	return m.ListActiveByCentroFunc(ctx, centro)
}

type mockBudgetRepo struct {
	CreateIncreaseFunc func(ctx context.Context, inc *entity.BudgetIncrease) error
	GetIncreaseFunc    func(ctx context.Context, id int64) (*entity.BudgetIncrease, error)
	UpdateIncreaseFunc func(ctx context.Context, inc *entity.BudgetIncrease) error
	ListIncreasesFunc  func(ctx context.Context, centros []string, requesterID string) ([]*entity.BudgetIncrease, error)
	GetLedgerFunc      func(ctx context.Context, centro, sector string) (*entity.BudgetLedgerEntry, error)
	AddToLedgerFunc    func(ctx context.Context, centro, sector string, amount float64) error
}

func (m *mockBudgetRepo) CreateIncrease(ctx context.Context, inc *entity.BudgetIncrease) error {
	return m.CreateIncreaseFunc(ctx, inc)
}

func (m *mockBudgetRepo) GetIncrease(ctx context.Context, id int64) (*entity.BudgetIncrease, error) {
	return m.GetIncreaseFunc(ctx, id)
}

func (m *mockBudgetRepo) UpdateIncrease(ctx context.Context, inc *entity.BudgetIncrease) error {
	return m.UpdateIncreaseFunc(ctx, inc)
}

func (m *mockBudgetRepo) ListIncreases(ctx context.Context, centros []string, requesterID string) ([]*entity.BudgetIncrease, error) {
	return m.ListIncreasesFunc(ctx, centros, requesterID)
}

func (m *mockBudgetRepo) GetLedger(ctx context.Context, centro, sector string) (*entity.BudgetLedgerEntry, error) {
	return m.GetLedgerFunc(ctx, centro, sector)
}

func (m *mockBudgetRepo) AddToLedger(ctx context.Context, centro, sector string, amount float64) error {
	return m.AddToLedgerFunc(ctx, centro, sector, amount)
}

type mockNotificationRepo struct {
	CreateFunc          func(ctx context.Context, n *entity.Notification) error
	ListByRecipientFunc func(ctx context.Context, recipientID string, unreadOnly bool) ([]*entity.Notification, error)
	MarkReadFunc        func(ctx context.Context, id int64, recipientID string) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	return m.CreateFunc(ctx, n)
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool) ([]*entity.Notification, error) {
	return m.ListByRecipientFunc(ctx, recipientID, unreadOnly)
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id int64, recipientID string) error {
	return m.MarkReadFunc(ctx, id, recipientID)
}

// mockEmitter records emitted notifications in memory
type mockEmitter struct {
	recipients []string
	messages   []string
}

func (m *mockEmitter) Emit(ctx context.Context, recipientID string, requestID int64, message string) error {
	if recipientID == "" {
		return nil
	}
	m.recipients = append(m.recipients, recipientID)
	m.messages = append(m.messages, message)
	return nil
}

// mockTxManager executes the function directly without a real transaction
type mockTxManager struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type noopLogger struct{}

func (noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (noopLogger) Error(msg string, keysAndValues ...interface{}) {}
