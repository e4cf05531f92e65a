package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spmflow/spm-workflow/internal/apperr"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

type budgetFixture struct {
	svc       BudgetService
	increases map[int64]*entity.BudgetIncrease
	ledger    map[string]*entity.BudgetLedgerEntry
	emitter   *mockEmitter
}

func newBudgetFixture(t *testing.T) *budgetFixture {
	t.Helper()
	increases := make(map[int64]*entity.BudgetIncrease)
	ledger := make(map[string]*entity.BudgetLedgerEntry)
	nextID := int64(0)

	budgets := &mockBudgetRepo{
		CreateIncreaseFunc: func(ctx context.Context, inc *entity.BudgetIncrease) error {
			nextID++
			inc.ID = nextID
			copied := *inc
			increases[inc.ID] = &copied
			return nil
		},
		GetIncreaseFunc: func(ctx context.Context, id int64) (*entity.BudgetIncrease, error) {
			if inc, ok := increases[id]; ok {
				copied := *inc
				return &copied, nil
			}
			return nil, nil
		},
		UpdateIncreaseFunc: func(ctx context.Context, inc *entity.BudgetIncrease) error {
			copied := *inc
			increases[inc.ID] = &copied
			return nil
		},
		ListIncreasesFunc: func(ctx context.Context, centros []string, requesterID string) ([]*entity.BudgetIncrease, error) {
			var out []*entity.BudgetIncrease
			for _, inc := range increases {
				if requesterID != "" && inc.RequesterID != requesterID {
					continue
				}
				out = append(out, inc)
			}
			return out, nil
		},
		GetLedgerFunc: func(ctx context.Context, centro, sector string) (*entity.BudgetLedgerEntry, error) {
			return ledger[centro+"/"+sector], nil
		},
		AddToLedgerFunc: func(ctx context.Context, centro, sector string, amount float64) error {
			key := centro + "/" + sector
			entry, ok := ledger[key]
			if !ok {
				entry = &entity.BudgetLedgerEntry{Centro: centro, Sector: sector}
				ledger[key] = entry
			}
			entry.AllocatedAmount += amount
			entry.RemainingAmount += amount
			return nil
		},
	}

	emitter := &mockEmitter{}
	svc := NewBudgetService(budgets, emitter, &mockTxManager{}, noopLogger{})
	return &budgetFixture{svc: svc, increases: increases, ledger: ledger, emitter: emitter}
}

func middleManager() *entity.User {
	return &entity.User{ID: "u-jefe", Role: "solicitante", Position: "jefe", Centros: "C1,C2"}
}

func upperManager() *entity.User {
	return &entity.User{ID: "u-g2", Role: "gerente2", Centros: "C1"}
}

func TestRequestIncrease(t *testing.T) {
	f := newBudgetFixture(t)

	inc, err := f.svc.RequestIncrease(context.Background(), middleManager(), IncreaseInput{
		Centro: "C1", Sector: "S1", Amount: 500, Motive: "ampliacion de obra",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.IncreaseStatusPending, inc.Status)
	assert.Equal(t, "u-jefe", inc.RequesterID)
}

func TestRequestIncrease_Validation(t *testing.T) {
	tests := []struct {
		name  string
		actor *entity.User
		input IncreaseInput
		code  apperr.Code
	}{
		{
			"requires capability",
			&entity.User{ID: "u1", Role: "solicitante", Centros: "C1"},
			IncreaseInput{Centro: "C1", Sector: "S1", Amount: 100, Motive: "ampliacion"},
			apperr.CodeForbidden,
		},
		{
			"amount must be positive",
			middleManager(),
			IncreaseInput{Centro: "C1", Sector: "S1", Amount: 0, Motive: "ampliacion"},
			apperr.CodeValidation,
		},
		{
			"centro outside scope",
			middleManager(),
			IncreaseInput{Centro: "C9", Sector: "S1", Amount: 100, Motive: "ampliacion"},
			apperr.CodeValidation,
		},
		{
			"motive too short",
			middleManager(),
			IncreaseInput{Centro: "C1", Sector: "S1", Amount: 100, Motive: "ok"},
			apperr.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBudgetFixture(t)
			_, err := f.svc.RequestIncrease(context.Background(), tt.actor, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperr.CodeOf(err))
		})
	}
}

func TestResolveIncrease_ApproveCreditsLedger(t *testing.T) {
	f := newBudgetFixture(t)

	inc, err := f.svc.RequestIncrease(context.Background(), middleManager(), IncreaseInput{
		Centro: "C1", Sector: "S1", Amount: 500, Motive: "ampliacion de obra",
	})
	require.NoError(t, err)

	resolved, err := f.svc.ResolveIncrease(context.Background(), upperManager(), inc.ID, entity.ActionApprove, "ok")
	require.NoError(t, err)
	assert.Equal(t, entity.IncreaseStatusApproved, resolved.Status)
	assert.Equal(t, "u-g2", resolved.ResolverID)
	assert.NotNil(t, resolved.ResolvedAt)

	entry, err := f.svc.GetLedger(context.Background(), "C1", "S1")
	require.NoError(t, err)
	assert.Equal(t, 500.0, entry.AllocatedAmount)
	assert.Equal(t, 500.0, entry.RemainingAmount)

	// Approvals accumulate
	second, err := f.svc.RequestIncrease(context.Background(), middleManager(), IncreaseInput{
		Centro: "C1", Sector: "S1", Amount: 200, Motive: "imprevistos de montaje",
	})
	require.NoError(t, err)
	_, err = f.svc.ResolveIncrease(context.Background(), upperManager(), second.ID, entity.ActionApprove, "")
	require.NoError(t, err)

	entry, err = f.svc.GetLedger(context.Background(), "C1", "S1")
	require.NoError(t, err)
	assert.Equal(t, 700.0, entry.AllocatedAmount)
}

func TestResolveIncrease_RejectLeavesLedgerUntouched(t *testing.T) {
	f := newBudgetFixture(t)

	inc, err := f.svc.RequestIncrease(context.Background(), middleManager(), IncreaseInput{
		Centro: "C1", Sector: "S1", Amount: 500, Motive: "ampliacion de obra",
	})
	require.NoError(t, err)

	resolved, err := f.svc.ResolveIncrease(context.Background(), upperManager(), inc.ID, entity.ActionReject, "sin fondos")
	require.NoError(t, err)
	assert.Equal(t, entity.IncreaseStatusRejected, resolved.Status)

	entry, err := f.svc.GetLedger(context.Background(), "C1", "S1")
	require.NoError(t, err)
	assert.Zero(t, entry.AllocatedAmount)
}

func TestResolveIncrease_Guards(t *testing.T) {
	f := newBudgetFixture(t)

	inc, err := f.svc.RequestIncrease(context.Background(), middleManager(), IncreaseInput{
		Centro: "C1", Sector: "S1", Amount: 500, Motive: "ampliacion de obra",
	})
	require.NoError(t, err)

	_, err = f.svc.ResolveIncrease(context.Background(), middleManager(), inc.ID, entity.ActionApprove, "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = f.svc.ResolveIncrease(context.Background(), upperManager(), 999, entity.ActionApprove, "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.svc.ResolveIncrease(context.Background(), upperManager(), inc.ID, entity.ActionReject, "")
	require.NoError(t, err)
	_, err = f.svc.ResolveIncrease(context.Background(), upperManager(), inc.ID, entity.ActionApprove, "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStateConflict, apperr.CodeOf(err))
}

func TestListIncreases_RequesterSeesOwnOnly(t *testing.T) {
	f := newBudgetFixture(t)

	_, err := f.svc.RequestIncrease(context.Background(), middleManager(), IncreaseInput{
		Centro: "C1", Sector: "S1", Amount: 500, Motive: "ampliacion de obra",
	})
	require.NoError(t, err)

	own, err := f.svc.ListIncreases(context.Background(), middleManager())
	require.NoError(t, err)
	assert.Len(t, own, 1)

	other := &entity.User{ID: "u-otro", Role: "solicitante", Position: "jefe", Centros: "C1"}
	none, err := f.svc.ListIncreases(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, none)
}
