// internal/aiquery/executor_test.go
package aiquery

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "pos-insights/internal/common/errors"
	"pos-insights/internal/common/logger"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// expectTenantTx registers the transaction open and the row-level
// security claim that precede every executed query.
func expectTenantTx(mock sqlmock.Sqlmock, orgID string) {
	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").
		WithArgs(`{"org_id":"` + orgID + `","role":"authenticated"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestExecutorReturnsRows(t *testing.T) {
	db, mock := setupMockDB(t)
	executor := NewExecutor(db, time.Second, logger.NewTestLogger(t))

	expectTenantTx(mock, "org-1")
	mock.ExpectQuery("SELECT time_span, net_sales FROM till_summaries").
		WillReturnRows(sqlmock.NewRows([]string{"time_span", "net_sales"}).
			AddRow("2026-08-01", 1250.50).
			AddRow("2026-08-02", 980.00))
	mock.ExpectRollback()

	result, err := executor.ExecuteReadOnly(context.Background(), "org-1",
		"SELECT time_span, net_sales FROM till_summaries LIMIT 100")
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, []string{"time_span", "net_sales"}, result.Columns)
	assert.Equal(t, "2026-08-01", result.Rows[0]["time_span"])
	assert.Equal(t, 1250.50, result.Rows[0]["net_sales"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorConvertsByteColumnsToStrings(t *testing.T) {
	db, mock := setupMockDB(t)
	executor := NewExecutor(db, time.Second, logger.NewTestLogger(t))

	expectTenantTx(mock, "org-1")
	mock.ExpectQuery("SELECT name FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow([]byte("Flat White")))
	mock.ExpectRollback()

	result, err := executor.ExecuteReadOnly(context.Background(), "org-1", "SELECT name FROM products LIMIT 100")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Flat White", result.Rows[0]["name"])
}

func TestExecutorRejectsNonSelect(t *testing.T) {
	db, mock := setupMockDB(t)
	executor := NewExecutor(db, time.Second, logger.NewTestLogger(t))

	_, err := executor.ExecuteReadOnly(context.Background(), "org-1", "DELETE FROM orders")
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeNotReadOnly))
	assert.NoError(t, mock.ExpectationsWereMet(), "no query may reach the store")
}

func TestExecutorClassifiesQueryFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	executor := NewExecutor(db, time.Second, logger.NewTestLogger(t))

	expectTenantTx(mock, "org-1")
	mock.ExpectQuery("SELECT bad_column FROM orders").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	_, err := executor.ExecuteReadOnly(context.Background(), "org-1", "SELECT bad_column FROM orders")
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeExecutionFailed))
}

func TestExecutorClassifiesTimeout(t *testing.T) {
	db, mock := setupMockDB(t)
	executor := NewExecutor(db, time.Second, logger.NewTestLogger(t))

	expectTenantTx(mock, "org-1")
	mock.ExpectQuery("SELECT 1 AS slow").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := executor.ExecuteReadOnly(context.Background(), "org-1", "SELECT 1 AS slow")
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeExecutionTimeout))
}

func TestExecutorCapsRowCount(t *testing.T) {
	db, mock := setupMockDB(t)
	executor := NewExecutor(db, time.Second, logger.NewTestLogger(t))

	result := sqlmock.NewRows([]string{"id"})
	for i := 0; i < MaxRowLimit+5; i++ {
		result.AddRow(i)
	}
	expectTenantTx(mock, "org-1")
	mock.ExpectQuery("SELECT id FROM orders").WillReturnRows(result)
	mock.ExpectRollback()

	res, err := executor.ExecuteReadOnly(context.Background(), "org-1", "SELECT id FROM orders")
	require.NoError(t, err)
	assert.Len(t, res.Rows, MaxRowLimit)
}
