// internal/analytics/store.go
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pos-insights/internal/common/database"
	"pos-insights/internal/common/logger"
	"pos-insights/internal/models"
)

// Store serves the pre-built dashboard queries. Till summary rollups
// filter on org_id directly; orders and locations carry no tenancy
// column, so those queries run under row-level security claims.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "analytics-store"}),
	}
}

// KPIData returns the headline metrics for [from, to] along with
// percentage change against the previous period of equal length.
func (s *Store) KPIData(ctx context.Context, orgID, from, to string) (*models.KPIData, error) {
	const periodQuery = `
		SELECT
			COALESCE(SUM(gross_sales), 0),
			COALESCE(SUM(net_sales), 0),
			COALESCE(SUM(total_discount), 0),
			COALESCE(SUM(returns_total), 0),
			COALESCE(SUM(qty_transactions), 0)
		FROM till_summaries
		WHERE org_id = $1
		  AND time_span >= $2
		  AND time_span <= $3`

	current, err := s.periodTotals(ctx, periodQuery, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load current period KPIs: %w", err)
	}

	prevFrom, prevTo := previousPeriod(from, to)
	previous, err := s.periodTotals(ctx, periodQuery, orgID, prevFrom, prevTo)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous period KPIs: %w", err)
	}

	return &models.KPIData{
		GrossSales:       current.gross,
		NetSales:         current.net,
		Discounts:        current.discounts,
		Refunds:          current.refunds,
		AOV:              averageOrderValue(current.net, current.transactions),
		GrossSalesChange: calculateChange(current.gross, previous.gross),
		NetSalesChange:   calculateChange(current.net, previous.net),
		DiscountsChange:  calculateChange(current.discounts, previous.discounts),
		RefundsChange:    calculateChange(current.refunds, previous.refunds),
		AOVChange: calculateChange(
			averageOrderValue(current.net, current.transactions),
			averageOrderValue(previous.net, previous.transactions),
		),
	}, nil
}

type periodTotals struct {
	gross        float64
	net          float64
	discounts    float64
	refunds      float64
	transactions float64
}

func (s *Store) periodTotals(ctx context.Context, query, orgID, from, to string) (*periodTotals, error) {
	t := &periodTotals{}
	err := s.db.QueryRowContext(ctx, query, orgID, from, to).Scan(
		&t.gross, &t.net, &t.discounts, &t.refunds, &t.transactions,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// SalesChartData returns daily net sales for the period, ordered by day.
func (s *Store) SalesChartData(ctx context.Context, orgID, from, to string) ([]models.SalesChartPoint, error) {
	const query = `
		SELECT time_span::text, COALESCE(SUM(net_sales), 0)
		FROM till_summaries
		WHERE org_id = $1
		  AND time_span >= $2
		  AND time_span <= $3
		GROUP BY time_span
		ORDER BY time_span ASC`

	rows, err := s.db.QueryContext(ctx, query, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales chart data: %w", err)
	}
	defer rows.Close()

	points := []models.SalesChartPoint{}
	for rows.Next() {
		var p models.SalesChartPoint
		if err := rows.Scan(&p.Date, &p.NetSales); err != nil {
			return nil, fmt.Errorf("failed to scan sales chart row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// TopProducts returns the ten highest-revenue products for the period,
// counting completed orders only.
func (s *Store) TopProducts(ctx context.Context, orgID, from, to string) ([]models.TopProduct, error) {
	const query = `
		SELECT p.id, p.name, COALESCE(p.category, ''),
			COALESCE(SUM(oi.quantity), 0),
			COALESCE(SUM(oi.total_price), 0) AS revenue
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'completed'
		  AND o.created_at >= $1::date
		  AND o.created_at < ($2::date + INTERVAL '1 day')
		GROUP BY p.id, p.name, p.category
		ORDER BY revenue DESC
		LIMIT 10`

	products := []models.TopProduct{}
	err := s.tenantQuery(ctx, orgID, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var p models.TopProduct
			if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Quantity, &p.Revenue); err != nil {
				return fmt.Errorf("failed to scan product row: %w", err)
			}
			products = append(products, p)
		}
		return nil
	}, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load top products: %w", err)
	}
	return products, nil
}

// Locations returns the tenant's venues ordered by name.
func (s *Store) Locations(ctx context.Context, orgID string) ([]models.Location, error) {
	const query = `
		SELECT id, name,
			COALESCE(address, ''), COALESCE(city, ''),
			COALESCE(state, ''), COALESCE(country, ''),
			COALESCE(timezone, '')
		FROM locations
		ORDER BY name ASC`

	locations := []models.Location{}
	err := s.tenantQuery(ctx, orgID, query, func(rows *sql.Rows) error {
		for rows.Next() {
			var l models.Location
			if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.City, &l.State, &l.Country, &l.Timezone); err != nil {
				return fmt.Errorf("failed to scan location row: %w", err)
			}
			locations = append(locations, l)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load locations: %w", err)
	}
	return locations, nil
}

// tenantQuery runs one read inside a read-only transaction carrying the
// organization's row-level security claims, for tables that have no
// tenancy column of their own.
func (s *Store) tenantQuery(ctx context.Context, orgID, query string, scan func(*sql.Rows) error, args ...interface{}) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := database.SetTenantClaims(ctx, tx, orgID); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if err := scan(rows); err != nil {
		return err
	}
	return rows.Err()
}

// previousPeriod shifts [from, to] back by the window's length plus one
// day, giving an adjacent non-overlapping window of equal size.
// Unparseable bounds fall through unchanged and the comparison query
// simply returns zero totals.
func previousPeriod(from, to string) (string, string) {
	const layout = "2006-01-02"
	start, err1 := time.Parse(layout, from)
	end, err2 := time.Parse(layout, to)
	if err1 != nil || err2 != nil {
		return from, to
	}
	days := int(end.Sub(start).Hours()/24) + 1
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(days - 1))
	return prevStart.Format(layout), prevEnd.Format(layout)
}

// calculateChange is the percentage delta between periods. A zero
// previous value maps to 100 when the current period has any activity,
// and 0 otherwise, so freshly onboarded tenants see sane numbers.
func calculateChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / previous) * 100
}

func averageOrderValue(netSales, transactions float64) float64 {
	if transactions == 0 {
		return 0
	}
	return netSales / transactions
}
