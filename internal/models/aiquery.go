// internal/models/aiquery.go
package models

// Row is a single result row from a read-only analytics query.
// Values are untyped scalars: string, float64, int64, bool or nil.
type Row map[string]interface{}

// ResultSet is the outcome of one read-only query. Columns preserves
// the SQL result's column order, which Row maps cannot.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// DateRange bounds a query to [From, To], both ISO-8601 dates.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// AIQueryRequest is the user-facing natural language question plus the
// dashboard filters active when it was asked.
type AIQueryRequest struct {
	Query       string     `json:"query"`
	DateRange   *DateRange `json:"dateRange,omitempty"`
	LocationIDs []string   `json:"locationIds,omitempty"`
	Channel     string     `json:"channel,omitempty"`
	OrderType   string     `json:"orderType,omitempty"`
}

// ChartData is a simple chart projection derived from the result set.
type ChartData struct {
	Type   string    `json:"type"` // "line" or "bar"
	Data   []float64 `json:"data"`
	Labels []string  `json:"labels"`
}

// KPICallouts are headline figures read off the first result row when
// the query produced well-named KPI columns.
type KPICallouts struct {
	NetSales        float64 `json:"netSales"`
	GrossSales      float64 `json:"grossSales"`
	QtyTransactions float64 `json:"qtyTransactions"`
	AverageSale     float64 `json:"averageSale"`
	ProfitAmount    float64 `json:"profitAmount"`
}

// Driver is one of the largest value columns behind an answer, surfaced
// so the UI can name what moved the number.
type Driver struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// AIQueryResponse is the complete answer to one AI query. It is built
// once by the composer, is immutable afterwards, and is safe to cache
// and replay. Expected failures populate Error and an apologetic Answer
// instead of surfacing as transport-level errors.
type AIQueryResponse struct {
	Answer    string       `json:"answer"`
	SQL       string       `json:"sql"`
	Data      []Row        `json:"data"`
	ChartData *ChartData   `json:"chartData,omitempty"`
	KPIs      *KPICallouts `json:"kpis,omitempty"`
	Drivers   []Driver     `json:"drivers,omitempty"`
	Error     string       `json:"error,omitempty"`
}
