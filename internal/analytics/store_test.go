// internal/analytics/store_test.go
package analytics

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-insights/internal/common/logger"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, logger.NewTestLogger(t)), mock
}

func kpiRow(gross, net, discounts, refunds, transactions float64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"gross", "net", "discounts", "refunds", "transactions"}).
		AddRow(gross, net, discounts, refunds, transactions)
}

func TestKPIData(t *testing.T) {
	store, mock := setupStore(t)

	// Current period, then previous period of equal length.
	mock.ExpectQuery("FROM till_summaries").
		WithArgs("org-1", "2026-08-08", "2026-08-14").
		WillReturnRows(kpiRow(1100, 1000, 50, 20, 40))
	mock.ExpectQuery("FROM till_summaries").
		WithArgs("org-1", "2026-08-01", "2026-08-07").
		WillReturnRows(kpiRow(550, 500, 25, 10, 25))

	kpis, err := store.KPIData(context.Background(), "org-1", "2026-08-08", "2026-08-14")
	require.NoError(t, err)

	assert.Equal(t, 1000.0, kpis.NetSales)
	assert.Equal(t, 1100.0, kpis.GrossSales)
	assert.Equal(t, 25.0, kpis.AOV)
	assert.Equal(t, 100.0, kpis.NetSalesChange)
	assert.Equal(t, 100.0, kpis.GrossSalesChange)
	assert.InDelta(t, 25.0, kpis.AOVChange, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKPIDataZeroPreviousPeriod(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("FROM till_summaries").
		WillReturnRows(kpiRow(500, 450, 10, 0, 20))
	mock.ExpectQuery("FROM till_summaries").
		WillReturnRows(kpiRow(0, 0, 0, 0, 0))

	kpis, err := store.KPIData(context.Background(), "org-1", "2026-08-01", "2026-08-07")
	require.NoError(t, err)

	assert.Equal(t, 100.0, kpis.NetSalesChange, "growth from zero reports as 100%")
	assert.Equal(t, 0.0, kpis.RefundsChange, "zero to zero reports as flat")
}

func TestKPIDataQueryError(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("FROM till_summaries").WillReturnError(sql.ErrConnDone)

	_, err := store.KPIData(context.Background(), "org-1", "2026-08-01", "2026-08-07")
	assert.Error(t, err)
}

func TestSalesChartData(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("GROUP BY time_span").
		WithArgs("org-1", "2026-08-01", "2026-08-03").
		WillReturnRows(sqlmock.NewRows([]string{"time_span", "net_sales"}).
			AddRow("2026-08-01", 1250.5).
			AddRow("2026-08-02", 980.0))

	points, err := store.SalesChartData(context.Background(), "org-1", "2026-08-01", "2026-08-03")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-08-01", points[0].Date)
	assert.Equal(t, 1250.5, points[0].NetSales)
}

func TestSalesChartDataEmpty(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery("GROUP BY time_span").
		WillReturnRows(sqlmock.NewRows([]string{"time_span", "net_sales"}))

	points, err := store.SalesChartData(context.Background(), "org-1", "2026-08-01", "2026-08-03")
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

// expectTenantTx registers the read-only transaction and the row-level
// security claim that precede queries on tables without an org column.
func expectTenantTx(mock sqlmock.Sqlmock, orgID string) {
	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config").
		WithArgs(`{"org_id":"` + orgID + `","role":"authenticated"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestTopProducts(t *testing.T) {
	store, mock := setupStore(t)

	expectTenantTx(mock, "org-1")
	mock.ExpectQuery("ORDER BY revenue DESC").
		WithArgs("2026-08-01", "2026-08-31").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "quantity", "revenue"}).
			AddRow("p-1", "Flat White", "coffee", 120.0, 540.0).
			AddRow("p-2", "Croissant", "bakery", 80.0, 360.0))
	mock.ExpectRollback()

	products, err := store.TopProducts(context.Background(), "org-1", "2026-08-01", "2026-08-31")
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Flat White", products[0].Name)
	assert.Equal(t, 540.0, products[0].Revenue)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocations(t *testing.T) {
	store, mock := setupStore(t)

	expectTenantTx(mock, "org-1")
	mock.ExpectQuery("FROM locations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "address", "city", "state", "country", "timezone"}).
			AddRow("loc-1", "CBD Store", "1 Queen St", "Auckland", "", "NZ", "Pacific/Auckland"))
	mock.ExpectRollback()

	locations, err := store.Locations(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, locations, 1)
	assert.Equal(t, "CBD Store", locations[0].Name)
	assert.Equal(t, "Pacific/Auckland", locations[0].Timezone)
}

func TestPreviousPeriod(t *testing.T) {
	from, to := previousPeriod("2026-08-08", "2026-08-14")
	assert.Equal(t, "2026-08-01", from)
	assert.Equal(t, "2026-08-07", to)

	from, to = previousPeriod("2026-08-01", "2026-08-01")
	assert.Equal(t, "2026-07-31", from)
	assert.Equal(t, "2026-07-31", to)

	from, to = previousPeriod("not-a-date", "2026-08-01")
	assert.Equal(t, "not-a-date", from)
	assert.Equal(t, "2026-08-01", to)
}

func TestCalculateChange(t *testing.T) {
	assert.Equal(t, 50.0, calculateChange(150, 100))
	assert.Equal(t, -25.0, calculateChange(75, 100))
	assert.Equal(t, 100.0, calculateChange(10, 0))
	assert.Equal(t, 0.0, calculateChange(0, 0))
}
