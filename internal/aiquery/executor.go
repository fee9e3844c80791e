// internal/aiquery/executor.go
package aiquery

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"pos-insights/internal/common/database"
	commonerrors "pos-insights/internal/common/errors"
	"pos-insights/internal/common/logger"
	"pos-insights/internal/models"
)

// DefaultExecutionTimeout bounds a single analytics query.
const DefaultExecutionTimeout = 2000 * time.Millisecond

// Executor runs already-hardened SQL against the analytics store in a
// read-only capacity, bounded by a timeout. It implements ReadOnlyStore.
type Executor struct {
	db      *sql.DB
	timeout time.Duration
	logger  logger.Logger
}

func NewExecutor(db *sql.DB, timeout time.Duration, log logger.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultExecutionTimeout
	}
	return &Executor{
		db:      db,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "query-executor"}),
	}
}

// ExecuteReadOnly runs one SELECT and returns its rows as untyped
// scalars, capped at MaxRowLimit, along with the result's column order.
// The SQL is expected to have passed Harden already; a final
// SELECT-prefix check rejects anything else. Each run happens in a
// read-only transaction carrying the tenant's row-level security
// claims, since generated SQL has no org predicate.
func (e *Executor) ExecuteReadOnly(ctx context.Context, orgID, sqlText string) (*models.ResultSet, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT") {
		return nil, commonerrors.NewNotReadOnlyError()
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, e.classifyError(ctx, sqlText, err)
	}
	defer tx.Rollback()

	if err := database.SetTenantClaims(ctx, tx, orgID); err != nil {
		return nil, e.classifyError(ctx, sqlText, err)
	}

	rows, err := tx.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, e.classifyError(ctx, sqlText, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, commonerrors.NewExecutionFailedError(err)
	}

	results := make([]models.Row, 0)
	values := make([]interface{}, len(columns))
	pointers := make([]interface{}, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if len(results) >= MaxRowLimit {
			break
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, commonerrors.NewExecutionFailedError(err)
		}
		row := make(models.Row, len(columns))
		for i, col := range columns {
			row[col] = normalizeScalar(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, e.classifyError(ctx, sqlText, err)
	}

	return &models.ResultSet{Columns: columns, Rows: results}, nil
}

// classifyError splits timeouts from plain store failures so operations
// can alert on them separately.
func (e *Executor) classifyError(ctx context.Context, sqlText string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		e.logger.Error("query execution timed out", map[string]interface{}{
			"timeoutMs": e.timeout.Milliseconds(),
			"sql":       sqlText,
		})
		return commonerrors.NewExecutionTimeoutError(int(e.timeout.Milliseconds()))
	}
	e.logger.Error("query execution failed", map[string]interface{}{
		"sql":   sqlText,
		"error": err.Error(),
	})
	return commonerrors.NewExecutionFailedError(err)
}

// normalizeScalar converts driver values to JSON-friendly scalars.
// lib/pq returns text columns as []byte.
func normalizeScalar(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}
