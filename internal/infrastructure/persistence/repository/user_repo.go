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

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

const userColumns = `
	id_spm, nombre, apellido, COALESCE(mail, ''), rol, COALESCE(posicion, ''),
	COALESCE(sector, ''), COALESCE(centros, ''), COALESCE(jefe, ''),
	COALESCE(gerente1, ''), COALESCE(gerente2, '')
`

// GetByID retrieves a user by id, case-insensitively
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE lower(id_spm) = ?`

	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, strings.ToLower(id))
	user, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by ID", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email. Hierarchy fields sometimes hold an id
// instead of a mail address, so the id column participates in the match.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios WHERE lower(COALESCE(mail, '')) = ? OR lower(id_spm) = ?`

	needle := strings.ToLower(strings.TrimSpace(email))
	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, needle, needle)
	user, err := scanUser(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user by email", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func scanUser(scan func(dest ...interface{}) error) (*entity.User, error) {
	var user entity.User
	err := scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.Role,
		&user.Position,
		&user.Sector,
		&user.Centros,
		&user.Jefe,
		&user.Gerente1,
		&user.Gerente2,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
