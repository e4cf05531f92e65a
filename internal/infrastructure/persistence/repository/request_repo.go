package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spmflow/spm-workflow/internal/application/port"
	"github.com/spmflow/spm-workflow/internal/domain/entity"
	"github.com/spmflow/spm-workflow/internal/domain/workflow"
)

// RequestRepository implements port.RequestRepository
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, id_usuario, centro, sector, centro_costos, almacen_virtual,
	criticidad, fecha_necesidad, justificacion, status, aprobador_id,
	planner_id, total_monto, items_json, notificado_at, created_at, updated_at
`

// Create inserts a new requisition row
func (r *RequestRepository) Create(ctx context.Context, req *entity.Request) error {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO solicitudes (
			id_usuario, centro, sector, centro_costos, almacen_virtual,
			criticidad, fecha_necesidad, justificacion, status, aprobador_id,
			planner_id, total_monto, items_json, notificado_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		req.OwnerID,
		req.Centro,
		req.Sector,
		req.CentroCostos,
		req.AlmacenVirtual,
		req.Criticality,
		req.NeedBy,
		req.Justification,
		string(req.Status),
		req.ApproverID,
		req.PlannerID,
		req.TotalAmount,
		string(payload),
		req.NotifiedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create request", zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves a requisition by ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM solicitudes WHERE id = ?`

	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)
	req, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// Update persists all mutable fields of a requisition
func (r *RequestRepository) Update(ctx context.Context, req *entity.Request) error {
	payload, err := json.Marshal(req.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		UPDATE solicitudes SET
			centro = ?, sector = ?, centro_costos = ?, almacen_virtual = ?,
			criticidad = ?, fecha_necesidad = ?, justificacion = ?, status = ?,
			aprobador_id = ?, planner_id = ?, total_monto = ?, items_json = ?,
			notificado_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err = getExecutor(ctx, r.db).ExecContext(ctx, query,
		req.Centro,
		req.Sector,
		req.CentroCostos,
		req.AlmacenVirtual,
		req.Criticality,
		req.NeedBy,
		req.Justification,
		string(req.Status),
		req.ApproverID,
		req.PlannerID,
		req.TotalAmount,
		string(payload),
		req.NotifiedAt,
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update request", zap.Int64("id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}
	return nil
}

// UpdateTotal updates only the computed total of a requisition
func (r *RequestRepository) UpdateTotal(ctx context.Context, id int64, total float64) error {
	query := `UPDATE solicitudes SET total_monto = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query, total, id)
	if err != nil {
		r.logger.Error("Failed to update total", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update total: %w", err)
	}
	return nil
}

// ListByOwner retrieves the requisitions created by a user, newest first
func (r *RequestRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entity.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM solicitudes WHERE id_usuario = ? ORDER BY created_at DESC, id DESC`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.String("owner", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.Request
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(scan func(dest ...interface{}) error) (*entity.Request, error) {
	var req entity.Request
	var status, payload string
	var notifiedAt sql.NullTime

	err := scan(
		&req.ID,
		&req.OwnerID,
		&req.Centro,
		&req.Sector,
		&req.CentroCostos,
		&req.AlmacenVirtual,
		&req.Criticality,
		&req.NeedBy,
		&req.Justification,
		&status,
		&req.ApproverID,
		&req.PlannerID,
		&req.TotalAmount,
		&payload,
		&notifiedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Status = workflow.State(status)
	if notifiedAt.Valid {
		req.NotifiedAt = &notifiedAt.Time
	}
	if err := json.Unmarshal([]byte(payload), &req.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &req, nil
}

// Verify interface compliance
var _ port.RequestRepository = (*RequestRepository)(nil)
