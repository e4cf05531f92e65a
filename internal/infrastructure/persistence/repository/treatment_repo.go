package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// TreatmentRepository implements port.TreatmentRepository
type TreatmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTreatmentRepository creates a new treatment repository
func NewTreatmentRepository(db *sql.DB, logger *zap.Logger) port.TreatmentRepository {
	return &TreatmentRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts or replaces the decision for (request, item index)
func (r *TreatmentRepository) Upsert(ctx context.Context, decision *entity.TreatmentDecision) error {
	query := `
		INSERT INTO solicitud_items_tratamiento (
			solicitud_id, item_index, decision, cantidad_aprobada,
			codigo_equivalente, proveedor_sugerido, precio_unitario_estimado,
			comentario, updated_by, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(solicitud_id, item_index) DO UPDATE SET
			decision = excluded.decision,
			cantidad_aprobada = excluded.cantidad_aprobada,
			codigo_equivalente = excluded.codigo_equivalente,
			proveedor_sugerido = excluded.proveedor_sugerido,
			precio_unitario_estimado = excluded.precio_unitario_estimado,
			comentario = excluded.comentario,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		decision.RequestID,
		decision.ItemIndex,
		decision.Kind,
		decision.ApprovedQty,
		decision.EquivalentCode,
		decision.SuggestedSupplier,
		decision.EstimatedUnitPrice,
		decision.Comment,
		decision.UpdatedBy,
		decision.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert treatment decision",
			zap.Int64("request_id", decision.RequestID),
			zap.Int("item_index", decision.ItemIndex),
			zap.Error(err))
		return fmt.Errorf("failed to upsert treatment decision: %w", err)
	}
	return nil
}

// ListByRequest retrieves the decision ledger of a request in item order
func (r *TreatmentRepository) ListByRequest(ctx context.Context, requestID int64) ([]*entity.TreatmentDecision, error) {
	query := `
		SELECT solicitud_id, item_index, decision, cantidad_aprobada,
			codigo_equivalente, proveedor_sugerido, precio_unitario_estimado,
			comentario, updated_by, updated_at
		FROM solicitud_items_tratamiento
		WHERE solicitud_id = ?
		ORDER BY item_index
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list treatment decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list treatment decisions: %w", err)
	}
	defer rows.Close()

	var decisions []*entity.TreatmentDecision
	for rows.Next() {
		var d entity.TreatmentDecision
		var estimated sql.NullFloat64

		err := rows.Scan(
			&d.RequestID,
			&d.ItemIndex,
			&d.Kind,
			&d.ApprovedQty,
			&d.EquivalentCode,
			&d.SuggestedSupplier,
			&estimated,
			&d.Comment,
			&d.UpdatedBy,
			&d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan treatment decision: %w", err)
		}
		if estimated.Valid {
			d.EstimatedUnitPrice = &estimated.Float64
		}
		decisions = append(decisions, &d)
	}
	return decisions, rows.Err()
}

// DeleteByRequest clears the decision ledger of a request
func (r *TreatmentRepository) DeleteByRequest(ctx context.Context, requestID int64) error {
	query := `DELETE FROM solicitud_items_tratamiento WHERE solicitud_id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to clear treatment decisions", zap.Int64("request_id", requestID), zap.Error(err))
		return fmt.Errorf("failed to clear treatment decisions: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.TreatmentRepository = (*TreatmentRepository)(nil)
