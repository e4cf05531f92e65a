package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// BudgetRepository implements port.BudgetRepository
type BudgetRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *sql.DB, logger *zap.Logger) port.BudgetRepository {
	return &BudgetRepository{
		db:     db,
		logger: logger,
	}
}

const increaseColumns = `
	id, centro, sector, monto, motivo, estado, solicitante_id, aprobador_id,
	comentario, created_at, updated_at, resolved_at
`

// CreateIncrease inserts a new incorporation request
func (r *BudgetRepository) CreateIncrease(ctx context.Context, inc *entity.BudgetIncrease) error {
	query := `
		INSERT INTO presupuesto_incorporaciones (
			centro, sector, monto, motivo, estado, solicitante_id
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		inc.Centro,
		inc.Sector,
		inc.Amount,
		inc.Motive,
		inc.Status,
		inc.RequesterID,
	)
	if err != nil {
		r.logger.Error("Failed to create budget increase", zap.Error(err))
		return fmt.Errorf("failed to create budget increase: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	inc.ID = id
	return nil
}

// GetIncrease retrieves an incorporation request by ID
func (r *BudgetRepository) GetIncrease(ctx context.Context, id int64) (*entity.BudgetIncrease, error) {
	query := `SELECT ` + increaseColumns + ` FROM presupuesto_incorporaciones WHERE id = ?`

	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)
	inc, err := scanIncrease(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get budget increase", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get budget increase: %w", err)
	}
	return inc, nil
}

// UpdateIncrease persists the resolution fields of an incorporation request
func (r *BudgetRepository) UpdateIncrease(ctx context.Context, inc *entity.BudgetIncrease) error {
	query := `
		UPDATE presupuesto_incorporaciones SET
			estado = ?, aprobador_id = ?, comentario = ?, resolved_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		inc.Status,
		inc.ResolverID,
		inc.Comment,
		inc.ResolvedAt,
		inc.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update budget increase", zap.Int64("id", inc.ID), zap.Error(err))
		return fmt.Errorf("failed to update budget increase: %w", err)
	}
	return nil
}

// ListIncreases retrieves incorporation requests filtered by centros and/or
// requester, newest first
func (r *BudgetRepository) ListIncreases(ctx context.Context, centros []string, requesterID string) ([]*entity.BudgetIncrease, error) {
	query := `SELECT ` + increaseColumns + ` FROM presupuesto_incorporaciones`
	var clauses []string
	var args []interface{}

	if len(centros) > 0 {
		placeholders := strings.Repeat("?,", len(centros))
		clauses = append(clauses, fmt.Sprintf("centro IN (%s)", placeholders[:len(placeholders)-1]))
		for _, c := range centros {
			args = append(args, c)
		}
	}
	if requesterID != "" {
		clauses = append(clauses, "solicitante_id = ?")
		args = append(args, requesterID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list budget increases", zap.Error(err))
		return nil, fmt.Errorf("failed to list budget increases: %w", err)
	}
	defer rows.Close()

	var increases []*entity.BudgetIncrease
	for rows.Next() {
		inc, err := scanIncrease(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget increase: %w", err)
		}
		increases = append(increases, inc)
	}
	return increases, rows.Err()
}

// GetLedger retrieves the budget allocation for a (centro, sector)
func (r *BudgetRepository) GetLedger(ctx context.Context, centro, sector string) (*entity.BudgetLedgerEntry, error) {
	query := `SELECT centro, sector, monto_usd, saldo_usd FROM presupuestos WHERE centro = ? AND sector = ?`

	var entry entity.BudgetLedgerEntry
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, centro, sector).Scan(
		&entry.Centro,
		&entry.Sector,
		&entry.AllocatedAmount,
		&entry.RemainingAmount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get budget ledger", zap.String("centro", centro), zap.String("sector", sector), zap.Error(err))
		return nil, fmt.Errorf("failed to get budget ledger: %w", err)
	}
	return &entry, nil
}

// AddToLedger credits an approved amount, creating the row on first use
func (r *BudgetRepository) AddToLedger(ctx context.Context, centro, sector string, amount float64) error {
	query := `
		INSERT INTO presupuestos (centro, sector, monto_usd, saldo_usd)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(centro, sector) DO UPDATE SET
			monto_usd = monto_usd + excluded.monto_usd,
			saldo_usd = saldo_usd + excluded.saldo_usd
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, centro, sector, amount, amount)
	if err != nil {
		r.logger.Error("Failed to credit budget ledger", zap.String("centro", centro), zap.String("sector", sector), zap.Error(err))
		return fmt.Errorf("failed to credit budget ledger: %w", err)
	}
	return nil
}

func scanIncrease(scan func(dest ...interface{}) error) (*entity.BudgetIncrease, error) {
	var inc entity.BudgetIncrease
	var resolvedAt sql.NullTime

	err := scan(
		&inc.ID,
		&inc.Centro,
		&inc.Sector,
		&inc.Amount,
		&inc.Motive,
		&inc.Status,
		&inc.RequesterID,
		&inc.ResolverID,
		&inc.Comment,
		&inc.CreatedAt,
		&inc.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		inc.ResolvedAt = &resolvedAt.Time
	}
	return &inc, nil
}

// Verify interface compliance
var _ port.BudgetRepository = (*BudgetRepository)(nil)
