// internal/aiquery/validator.go
package aiquery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	commonerrors "pos-insights/internal/common/errors"
)

const (
	// MaxRowLimit is the hard cap applied to any LIMIT clause.
	MaxRowLimit = 1000
	// DefaultRowLimit is appended when a query carries no LIMIT at all.
	DefaultRowLimit = 100
)

// AllowlistedTables is the closed set of tables generated SQL may touch.
// Defined at process start, never mutated.
var AllowlistedTables = map[string]bool{
	"till_summaries": true,
	"orders":         true,
	"order_items":    true,
	"products":       true,
	"locations":      true,
}

var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "EXEC", "CALL", "GRANT", "REVOKE",
}

var (
	forbiddenKeywordRe = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|TRUNCATE|EXEC|CALL|GRANT|REVOKE)\b`)
	systemSchemaRe     = regexp.MustCompile(`(?i)\b(pg_\w+|information_schema|sys|mysql)\b`)
	limitClauseRe      = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	tableRefRe         = regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+([\w."` + "`" + `']+)`)
	bareIdentifierRe   = regexp.MustCompile(`(?i)^[a-z_][a-z0-9_]*$`)
)

// Harden statically validates and rewrites a raw SQL string. On success
// it returns a single SELECT statement, free of mutation/DDL keywords
// and system schemas, touching only allowlisted tables, with a row cap
// of at most MaxRowLimit enforced. This is a textual safety net, not a
// SQL parser: table references are extracted heuristically after FROM
// and JOIN, and anything that is not a bare identifier is assumed to be
// a subquery or CTE and skipped.
func Harden(rawSQL string) (string, error) {
	sqlText := strings.TrimSpace(rawSQL)

	statements := 0
	for _, part := range strings.Split(sqlText, ";") {
		if strings.TrimSpace(part) != "" {
			statements++
		}
	}
	if statements > 1 {
		return "", commonerrors.NewMultipleStatementsError()
	}
	sqlText = strings.TrimSuffix(sqlText, ";")

	if m := forbiddenKeywordRe.FindString(sqlText); m != "" {
		return "", commonerrors.NewForbiddenKeywordError(strings.ToUpper(m))
	}

	if systemSchemaRe.MatchString(sqlText) {
		return "", commonerrors.NewSystemSchemaAccessError()
	}

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sqlText)), "SELECT") {
		return "", commonerrors.NewNotASelectError()
	}

	for _, name := range referencedTables(sqlText) {
		if AllowlistedTables[name] {
			continue
		}
		// Non-identifier references are subqueries or quoted expressions
		// the regex cannot resolve; skip them rather than reject.
		if !bareIdentifierRe.MatchString(name) {
			continue
		}
		return "", commonerrors.NewTableNotAllowedError(name)
	}

	sqlText = clampLimit(sqlText)

	return sqlText, nil
}

// referencedTables extracts candidate table names following FROM/JOIN,
// stripped of quoting and schema qualification, lower-cased.
func referencedTables(sqlText string) []string {
	var names []string
	for _, match := range tableRefRe.FindAllStringSubmatch(sqlText, -1) {
		names = append(names, normalizeIdentifier(match[2]))
	}
	return names
}

// normalizeIdentifier strips quotes and schema prefixes and lower-cases
// the identifier, so `public."Orders"` becomes `orders`.
func normalizeIdentifier(identifier string) string {
	cleaned := strings.Trim(identifier, "\"`'")
	parts := strings.Split(cleaned, ".")
	return strings.ToLower(parts[len(parts)-1])
}

// clampLimit caps every LIMIT clause at MaxRowLimit and appends a
// default LIMIT when none is present.
func clampLimit(sqlText string) string {
	if limitClauseRe.MatchString(sqlText) {
		return limitClauseRe.ReplaceAllStringFunc(sqlText, func(clause string) string {
			sub := limitClauseRe.FindStringSubmatch(clause)
			n, err := strconv.Atoi(sub[1])
			if err != nil || n > MaxRowLimit {
				n = MaxRowLimit
			}
			return fmt.Sprintf("LIMIT %d", n)
		})
	}
	return fmt.Sprintf("%s LIMIT %d", sqlText, DefaultRowLimit)
}

// containsForbiddenKeyword reports whether the text contains any of the
// forbidden keywords as a plain case-insensitive substring. Used by the
// generator as defense in depth ahead of the whole-word check in Harden.
func containsForbiddenKeyword(sqlText string) (string, bool) {
	upper := strings.ToUpper(sqlText)
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(upper, keyword) {
			return keyword, true
		}
	}
	return "", false
}
