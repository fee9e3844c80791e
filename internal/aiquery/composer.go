// internal/aiquery/composer.go
package aiquery

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pos-insights/internal/common/logger"
	"pos-insights/internal/models"
)

const (
	// rowPreviewCap bounds how many rows are embedded in the insight prompt.
	rowPreviewCap = 10

	fallbackInsight = "Analysis completed successfully. Please review the data above for insights."
	noDataInsight   = "I couldn't find any data matching your question. Try widening the date range or removing filters."
)

var emailRe = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)

// Composer turns execution results into the final response: a short
// natural language summary, chart and KPI projections, and the echoed
// SQL with email-shaped literals redacted.
type Composer struct {
	completer   TextCompleter
	temperature float32
	maxTokens   int
	logger      logger.Logger
}

func NewComposer(completer TextCompleter, temperature float32, maxTokens int, log logger.Logger) *Composer {
	return &Composer{
		completer:   completer,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      log.WithFields(map[string]interface{}{"component": "insight-composer"}),
	}
}

// Compose never fails: any insight generation error degrades to a static
// narrative, and empty result sets produce a coherent no-data answer.
func (c *Composer) Compose(ctx context.Context, originalQuery string, result *models.ResultSet, sqlText string) *models.AIQueryResponse {
	resp := &models.AIQueryResponse{
		SQL:  RedactEmails(sqlText),
		Data: []models.Row{},
	}

	if result == nil || len(result.Rows) == 0 {
		resp.Answer = noDataInsight
		return resp
	}
	resp.Data = result.Rows

	resp.Answer = c.generateInsight(ctx, originalQuery, result.Rows, sqlText)
	resp.ChartData = DeriveChartData(result.Columns, result.Rows)
	resp.KPIs = DeriveKPICallouts(result.Rows)
	resp.Drivers = DeriveDrivers(result.Columns, result.Rows)

	return resp
}

func (c *Composer) generateInsight(ctx context.Context, originalQuery string, rows []models.Row, sqlText string) string {
	preview := rows
	if len(preview) > rowPreviewCap {
		preview = preview[:rowPreviewCap]
	}
	previewJSON, _ := json.MarshalIndent(preview, "", "  ")

	prompt := fmt.Sprintf(`Based on the user's question "%s" and the SQL query results below, provide a clear, concise business insight.

SQL Query: %s

Data (first %d rows): %s

Provide a business-focused answer that:
1. Directly answers the user's question
2. Highlights key numbers and trends
3. Provides actionable insights
4. Uses clear, professional language
5. Keeps it concise (2-3 sentences max)

Format currency as AUD and round to nearest dollar.`, originalQuery, sqlText, rowPreviewCap, previewJSON)

	content, err := c.completer.Complete(ctx, "", prompt, CompletionOptions{
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		c.logger.Warn("insight generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return fallbackInsight
	}
	if strings.TrimSpace(content) == "" {
		return "Unable to generate insight from the data."
	}
	return content
}

// RedactEmails replaces email-shaped substrings, since generated SQL may
// have interpolated example literals.
func RedactEmails(text string) string {
	return emailRe.ReplaceAllString(text, "***@***.***")
}

// ==========================
// Chart derivation
// ==========================

// DeriveChartData builds a simple chart projection from the result set.
// Deterministic, no generation call: a date-like column plus a numeric
// column yields a line chart; numeric columns alone yield a bar chart
// over the first ten rows; anything else yields no chart. Columns gives
// the SQL result's column order, which decides which numeric column is
// charted; an empty slice falls back to sorted row keys.
func DeriveChartData(columns []string, rows []models.Row) *models.ChartData {
	if len(rows) == 0 {
		return nil
	}

	if len(columns) == 0 {
		columns = columnNames(rows[0])
	}
	dateColumn := ""
	var numericColumns []string

	for _, col := range columns {
		lower := strings.ToLower(col)
		if dateColumn == "" && (strings.Contains(lower, "date") || strings.Contains(lower, "day")) {
			dateColumn = col
			continue
		}
		if strings.Contains(lower, "id") || strings.Contains(lower, "count") {
			continue
		}
		if _, ok := toFloat(rows[0][col]); ok {
			numericColumns = append(numericColumns, col)
		}
	}

	if len(numericColumns) == 0 {
		return nil
	}

	if dateColumn != "" {
		chart := &models.ChartData{Type: "line"}
		for _, row := range rows {
			value, _ := toFloat(row[numericColumns[0]])
			chart.Data = append(chart.Data, value)
			chart.Labels = append(chart.Labels, scalarString(row[dateColumn]))
		}
		return chart
	}

	chart := &models.ChartData{Type: "bar"}
	limit := len(rows)
	if limit > rowPreviewCap {
		limit = rowPreviewCap
	}
	for i := 0; i < limit; i++ {
		value, _ := toFloat(rows[i][numericColumns[0]])
		chart.Data = append(chart.Data, value)
		chart.Labels = append(chart.Labels, rowLabel(rows[i], i))
	}
	return chart
}

// rowLabel picks a human label for a bar chart row.
func rowLabel(row models.Row, index int) string {
	for _, key := range []string{"name", "product_name", "location_name"} {
		if v, ok := row[key]; ok {
			if s := scalarString(v); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("Item %d", index+1)
}

// ==========================
// Driver derivation
// ==========================

// DeriveDrivers picks the top three numeric total-like columns of the
// first row, largest value first, so the UI can name what moved the
// number. Id and count columns are excluded; ties keep column order.
func DeriveDrivers(columns []string, rows []models.Row) []models.Driver {
	if len(rows) == 0 {
		return nil
	}
	if len(columns) == 0 {
		columns = columnNames(rows[0])
	}
	first := rows[0]

	var drivers []models.Driver
	for _, col := range columns {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "id") || strings.Contains(lower, "count") {
			continue
		}
		if value, ok := toFloat(first[col]); ok {
			drivers = append(drivers, models.Driver{Label: col, Value: value})
		}
	}
	if len(drivers) == 0 {
		return nil
	}

	sort.SliceStable(drivers, func(i, j int) bool {
		return drivers[i].Value > drivers[j].Value
	})
	if len(drivers) > 3 {
		drivers = drivers[:3]
	}
	return drivers
}

// ==========================
// KPI derivation
// ==========================

var kpiAliases = map[string][]string{
	"net_sales":        {"net_sales", "netsales", "net_amount"},
	"gross_sales":      {"gross_sales", "grosssales", "total_sales"},
	"qty_transactions": {"qty_transactions", "transactions", "order_count"},
	"average_sale":     {"average_sale", "avg_sale", "aov"},
	"profit_amount":    {"profit_amount", "profit"},
}

// DeriveKPICallouts reads well-named KPI fields off the first row.
// Best effort and non-fatal: absent or non-numeric fields default to 0,
// and a row with no recognized field yields no callouts at all.
func DeriveKPICallouts(rows []models.Row) *models.KPICallouts {
	if len(rows) == 0 {
		return nil
	}
	first := rows[0]

	read := func(field string) (float64, bool) {
		for _, alias := range kpiAliases[field] {
			if v, ok := first[alias]; ok {
				if f, numeric := toFloat(v); numeric {
					return f, true
				}
				return 0, true
			}
		}
		return 0, false
	}

	kpis := &models.KPICallouts{}
	found := false
	if v, ok := read("net_sales"); ok {
		kpis.NetSales = v
		found = true
	}
	if v, ok := read("gross_sales"); ok {
		kpis.GrossSales = v
		found = true
	}
	if v, ok := read("qty_transactions"); ok {
		kpis.QtyTransactions = v
		found = true
	}
	if v, ok := read("average_sale"); ok {
		kpis.AverageSale = v
		found = true
	}
	if v, ok := read("profit_amount"); ok {
		kpis.ProfitAmount = v
		found = true
	}

	if !found {
		return nil
	}
	return kpis
}

// ==========================
// Scalar helpers
// ==========================

// columnNames returns the row's keys in stable sorted order.
func columnNames(row models.Row) []string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// toFloat coerces a scalar to float64. The analytics store returns
// numeric columns as strings, so parseable strings count as numeric.
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
