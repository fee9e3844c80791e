// internal/models/dashboard.go
package models

// KPIData holds the dashboard headline metrics for the selected period,
// with percentage change against the previous period of equal length.
type KPIData struct {
	GrossSales       float64 `json:"grossSales"`
	NetSales         float64 `json:"netSales"`
	Discounts        float64 `json:"discounts"`
	Refunds          float64 `json:"refunds"`
	AOV              float64 `json:"aov"`
	GrossSalesChange float64 `json:"grossSalesChange"`
	NetSalesChange   float64 `json:"netSalesChange"`
	DiscountsChange  float64 `json:"discountsChange"`
	RefundsChange    float64 `json:"refundsChange"`
	AOVChange        float64 `json:"aovChange"`
}

// SalesChartPoint is one day of net sales for the trend chart.
type SalesChartPoint struct {
	Date     string  `json:"date"`
	NetSales float64 `json:"netSales"`
}

// TopProduct is one row of the revenue-ranked product list.
type TopProduct struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity float64 `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// Location is a venue the tenant operates.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}
