package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
)

// PlannerRuleRepository implements port.PlannerRuleRepository
type PlannerRuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPlannerRuleRepository creates a new planner rule repository
func NewPlannerRuleRepository(db *sql.DB, logger *zap.Logger) port.PlannerRuleRepository {
	return &PlannerRuleRepository{
		db:     db,
		logger: logger,
	}
}

// ListActiveByCentro retrieves the active rules for a centro in creation
// order, which is the tie-break order the assignment resolver relies on
func (r *PlannerRuleRepository) ListActiveByCentro(ctx context.Context, centro string) ([]*entity.PlannerRule, error) {
	query := `
		SELECT id, planner_id, centro, sector, almacen, activa, created_at
		FROM planificador_asignaciones
		WHERE centro = ? AND activa = 1
		ORDER BY created_at, id
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, centro)
	if err != nil {
		r.logger.Error("Failed to list planner rules", zap.String("centro", centro), zap.Error(err))
		return nil, fmt.Errorf("failed to list planner rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.PlannerRule
	for rows.Next() {
		var rule entity.PlannerRule
		err := rows.Scan(
			&rule.ID,
			&rule.PlannerID,
			&rule.Centro,
			&rule.Sector,
			&rule.Almacen,
			&rule.Active,
			&rule.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan planner rule: %w", err)
		}
		rules = append(rules, &rule)
	}
	return rules, rows.Err()
}

// Verify interface compliance
var _ port.PlannerRuleRepository = (*PlannerRuleRepository)(nil)
