package repository

import (
	"context"
	"database/sql"

	"github.com/spmflow/spm-workflow/internal/infrastructure/persistence/sqlite"
)

// getExecutor returns the ambient transaction when one is on the context,
// otherwise the plain database handle. The context key lives in the sqlite
// package so repositories always join the transaction WithTransaction opened.
func getExecutor(ctx context.Context, db *sql.DB) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, db)
}
