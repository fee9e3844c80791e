// internal/aiquery/generator.go
package aiquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "pos-insights/internal/common/errors"
	"pos-insights/internal/common/logger"
	"pos-insights/internal/common/metrics"
)

// generationResponseSchema validates the structure of the document the
// text generation service returns before any field is trusted.
var generationResponseSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"sql"},
	"properties": map[string]interface{}{
		"sql":         map[string]interface{}{"type": "string"},
		"explanation": map[string]interface{}{"type": "string"},
		"isValid":     map[string]interface{}{"type": "boolean"},
		"error":       map[string]interface{}{"type": "string"},
	},
}

// Generator turns a natural language question plus filter context into a
// hardened SQL candidate. It performs no execution itself; safety is
// delegated to Harden plus its own post-generation checks.
type Generator struct {
	completer   TextCompleter
	temperature float32
	logger      logger.Logger
}

func NewGenerator(completer TextCompleter, temperature float32, log logger.Logger) *Generator {
	return &Generator{
		completer:   completer,
		temperature: temperature,
		logger:      log.WithFields(map[string]interface{}{"component": "sql-generator"}),
	}
}

// Generate produces a validated SQL candidate for the request. Every
// rejection path short-circuits to an empty SQL string; a caller can
// rely on IsValid=true implying the SQL passed the full hardening pass.
func (g *Generator) Generate(ctx context.Context, req *SQLGenerationRequest) SQLGenerationResult {
	if req.Schema == "" {
		req.Schema = SchemaDescription
	}
	systemPrompt := g.buildSystemPrompt(req)
	userPrompt := g.buildUserPrompt(req)

	content, err := g.completer.Complete(ctx, systemPrompt, userPrompt, CompletionOptions{
		JSONMode:    true,
		Temperature: g.temperature,
	})
	if err != nil {
		upstream := commonerrors.NewUpstreamGenerationFailureError(err)
		g.logger.Error("text generation call failed", map[string]interface{}{
			"errorCode": string(upstream.Code),
			"error":     err.Error(),
		})
		return invalidResult(upstream.Message)
	}

	var result SQLGenerationResult
	if err := g.decodeResponse(content, &result); err != nil {
		g.logger.Warn("generation response malformed", map[string]interface{}{
			"error": err.Error(),
		})
		return invalidResult("Invalid SQL response format")
	}

	// Defense in depth, independent of the service's own isValid claim.
	if strings.TrimSpace(result.SQL) == "" {
		return invalidResult("Invalid SQL response format")
	}

	if keyword, found := containsForbiddenKeyword(result.SQL); found {
		metrics.GenerationRejections.WithLabelValues(string(commonerrors.ErrCodeForbiddenKeyword)).Inc()
		return invalidResult(fmt.Sprintf("Query contains forbidden keyword: %s", keyword))
	}

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(result.SQL)), "SELECT") {
		metrics.GenerationRejections.WithLabelValues(string(commonerrors.ErrCodeNotASelect)).Inc()
		return invalidResult("Query must be a SELECT statement")
	}

	hardened, err := Harden(result.SQL)
	if err != nil {
		metrics.GenerationRejections.WithLabelValues(string(commonerrors.CodeOf(err))).Inc()
		g.logger.Warn("candidate SQL rejected by validator", map[string]interface{}{
			"errorCode": string(commonerrors.CodeOf(err)),
		})
		var stdErr *commonerrors.StandardError
		if errors.As(err, &stdErr) {
			return invalidResult(stdErr.Message)
		}
		return invalidResult("SQL validation failed")
	}

	result.SQL = hardened
	result.IsValid = true
	result.Error = ""
	return result
}

// decodeResponse parses and structurally validates the service's JSON
// document.
func (g *Generator) decodeResponse(content string, out *SQLGenerationResult) error {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return fmt.Errorf("parse generation response: %w", err)
	}

	schemaLoader := gojsonschema.NewGoLoader(generationResponseSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	validation, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !validation.Valid() {
		errs := make([]string, len(validation.Errors()))
		for i, desc := range validation.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("generation response validation failed: %v", errs)
	}

	return json.Unmarshal([]byte(content), out)
}

func (g *Generator) buildSystemPrompt(req *SQLGenerationRequest) string {
	var parts []string

	parts = append(parts, "You are a SQL expert for a POS (Point of Sale) system. Generate safe, read-only SQL queries based on natural language requests.")
	parts = append(parts, "\nIMPORTANT SAFETY RULES:")
	parts = append(parts, "1. ONLY generate SELECT statements")
	parts = append(parts, "2. ALWAYS include a LIMIT clause (max 1000 rows)")
	parts = append(parts, "3. ALWAYS include date filters when possible")
	parts = append(parts, "4. NO INSERT, UPDATE, DELETE, DROP, CREATE, ALTER statements")
	parts = append(parts, "5. NO system tables or functions")

	parts = append(parts, "\nSCHEMA:")
	parts = append(parts, req.Schema)

	parts = append(parts, "\nCONTEXT:")
	parts = append(parts, "- This is a hospitality POS system with orders, products, locations")
	parts = append(parts, "- All monetary values are in AUD")
	parts = append(parts, "- Dates are in ISO format")
	parts = append(parts, "- Location access may be restricted based on user permissions")

	parts = append(parts, "\nFILTERS TO APPLY:")
	parts = append(parts, renderFilters(req)...)

	parts = append(parts, "\nReturn a JSON response with:")
	parts = append(parts, "- sql: The generated SQL query")
	parts = append(parts, "- explanation: Brief explanation of what the query does")
	parts = append(parts, "- isValid: true if query follows safety rules")
	parts = append(parts, "- error: any validation errors")

	return strings.Join(parts, "\n")
}

func (g *Generator) buildUserPrompt(req *SQLGenerationRequest) string {
	return fmt.Sprintf(`Generate a SQL query for: "%s"

Make sure to:
1. Apply all relevant filters from the context
2. Include appropriate JOINs for related data
3. Use meaningful column aliases
4. Include LIMIT clause
5. Order results logically (usually by date DESC or value DESC)`, req.Query)
}

// renderFilters renders each optional filter as a plain sentence. Absent
// filters render an explicit "no filter" sentence so the generator never
// silently assumes scope.
func renderFilters(req *SQLGenerationRequest) []string {
	var lines []string

	if req.DateRange != nil {
		lines = append(lines, fmt.Sprintf("Date Range: %s to %s", req.DateRange.From, req.DateRange.To))
	} else {
		lines = append(lines, "No date filter specified")
	}

	if len(req.LocationIDs) > 0 {
		lines = append(lines, fmt.Sprintf("Location IDs: %s", strings.Join(req.LocationIDs, ", ")))
	} else {
		lines = append(lines, "All locations")
	}

	if req.Channel != "" {
		lines = append(lines, fmt.Sprintf("Channel: %s", req.Channel))
	} else {
		lines = append(lines, "All channels")
	}

	if req.OrderType != "" {
		lines = append(lines, fmt.Sprintf("Order Type: %s", req.OrderType))
	} else {
		lines = append(lines, "All order types")
	}

	return lines
}

func invalidResult(message string) SQLGenerationResult {
	return SQLGenerationResult{SQL: "", Explanation: "", IsValid: false, Error: message}
}
