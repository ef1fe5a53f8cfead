package agents

import (
	"context"
	"database/sql"

	// Drivers registered for the "sqlite" and "postgres" db_types;
	// selecting which one is used happens purely via sql.Open's driver
	// name argument at call time.
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/merrors"
	"github.com/MagicBeansAI/magictunnel-sub010/pkg/router"
)

var driverNames = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "postgres",
}

// DatabaseExecutor opens connection_string of db_type and executes query,
// returning rows and row_count (§4.2).
type DatabaseExecutor struct {
	// Open defaults to sql.Open; overridable in tests.
	Open func(driverName, dataSourceName string) (*sql.DB, error)
}

// NewDatabaseExecutor builds a DatabaseExecutor.
func NewDatabaseExecutor() *DatabaseExecutor {
	return &DatabaseExecutor{Open: sql.Open}
}

// Execute implements router.Executor.
func (e *DatabaseExecutor) Execute(ctx context.Context, call router.ToolCall, at *router.AgentType) (*router.AgentResult, error) {
	cfg := at.Database
	timeout := router.EffectiveTimeout(cfg.TimeoutMS)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	driver, ok := driverNames[cfg.DBType]
	if !ok {
		return nil, merrors.New(merrors.ErrAgent, "unsupported db_type "+cfg.DBType)
	}

	db, err := e.Open(driver, cfg.ConnectionString)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to open database connection", err)
	}
	defer db.Close()

	query := router.RenderString(cfg.Query, call.Arguments)
	rows, err := db.QueryContext(runCtx, query)
	if err != nil {
		if runCtx.Err() != nil {
			return router.Failure("timed out").WithMetadata("timeout_ms", cfg.TimeoutMS), nil
		}
		return router.Failure(err.Error()), nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "failed to read result columns", err)
	}

	var data []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, merrors.Wrap(merrors.ErrAgent, "failed to scan row", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, merrors.Wrap(merrors.ErrAgent, "row iteration failed", err)
	}

	result := router.SuccessResult(data)
	result.WithMetadata("row_count", len(data))
	return result, nil
}
