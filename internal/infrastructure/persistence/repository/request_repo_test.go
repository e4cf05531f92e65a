package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spmflow/spm-workflow/internal/domain/entity"
	"github.com/spmflow/spm-workflow/internal/domain/workflow"
	"github.com/spmflow/spm-workflow/internal/infrastructure/persistence/sqlite"
)

func openWorkflowDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "spm.db"), 1000, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, db.Migrate(ctx))
	_, err = db.ExecContext(ctx,
		"INSERT INTO usuarios (id_spm, mail, rol) VALUES (?, ?, ?)", "u1", "u1@example.com", "solicitante")
	require.NoError(t, err)
	return db
}

func draftRequest() *entity.Request {
	return &entity.Request{
		OwnerID:       "u1",
		Centro:        "C1",
		Sector:        "S1",
		Criticality:   entity.CriticalityNormal,
		Justification: "reposicion de stock",
		Status:        workflow.StateDraft,
		Payload: entity.RequestPayload{
			Version: entity.PayloadVersion,
			Items:   []entity.Item{{Code: "MAT-1", Quantity: 2, UnitPrice: 10, Subtotal: 20}},
		},
		TotalAmount: 20,
	}
}

func TestRequestRepository_CreateInsideTransaction(t *testing.T) {
	db := openWorkflowDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())

	req := draftRequest()
	err := db.WithTransaction(context.Background(), func(txCtx context.Context) error {
		if err := repo.Create(txCtx, req); err != nil {
			return err
		}
		inside, err := repo.GetByID(txCtx, req.ID)
		if err != nil {
			return err
		}
		require.NotNil(t, inside, "the row must be visible within its own transaction")
		return nil
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, workflow.StateDraft, stored.Status)
	assert.Equal(t, 20.0, stored.TotalAmount)
	require.Len(t, stored.Payload.Items, 1)
	assert.Equal(t, "MAT-1", stored.Payload.Items[0].Code)
}

func TestRequestRepository_RollbackDiscardsWrites(t *testing.T) {
	db := openWorkflowDB(t)
	repo := NewRequestRepository(db.DB, zap.NewNop())

	req := draftRequest()
	boom := errors.New("boom")
	err := db.WithTransaction(context.Background(), func(txCtx context.Context) error {
		if err := repo.Create(txCtx, req); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	stored, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Nil(t, stored, "the rolled back request must not be observable")
}

func TestTreatmentRepository_UpsertAndClearInsideTransaction(t *testing.T) {
	db := openWorkflowDB(t)
	requests := NewRequestRepository(db.DB, zap.NewNop())
	treatments := NewTreatmentRepository(db.DB, zap.NewNop())

	req := draftRequest()
	require.NoError(t, requests.Create(context.Background(), req))

	estimated := 8.5
	err := db.WithTransaction(context.Background(), func(txCtx context.Context) error {
		return treatments.Upsert(txCtx, &entity.TreatmentDecision{
			RequestID:          req.ID,
			ItemIndex:          0,
			Kind:               entity.DecisionPurchase,
			ApprovedQty:        2,
			EstimatedUnitPrice: &estimated,
			UpdatedBy:          "p1",
			UpdatedAt:          time.Now(),
		})
	})
	require.NoError(t, err)

	decisions, err := treatments.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 1)
	assert.Equal(t, entity.DecisionPurchase, decisions[0].Kind)
	require.NotNil(t, decisions[0].EstimatedUnitPrice)
	assert.Equal(t, 8.5, *decisions[0].EstimatedUnitPrice)

	require.NoError(t, treatments.DeleteByRequest(context.Background(), req.ID))
	decisions, err = treatments.ListByRequest(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Empty(t, decisions)
}
