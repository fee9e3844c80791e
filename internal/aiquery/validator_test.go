// internal/aiquery/validator_test.go
package aiquery

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "pos-insights/internal/common/errors"
)

func TestHardenAcceptsSimpleSelect(t *testing.T) {
	out, err := Harden("SELECT time_span, net_sales FROM till_summaries WHERE org_id = 'org-1' LIMIT 50")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT 50")
	assert.True(t, strings.HasPrefix(strings.ToUpper(out), "SELECT"))
}

func TestHardenRejectsMultipleStatements(t *testing.T) {
	_, err := Harden("SELECT 1; DROP TABLE orders;")
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeMultipleStatements))
}

func TestHardenAllowsTrailingSemicolon(t *testing.T) {
	out, err := Harden("SELECT name FROM products;")
	require.NoError(t, err)
	assert.NotContains(t, out, ";")
}

func TestHardenRejectsForbiddenKeywords(t *testing.T) {
	cases := []struct {
		name string
		sql  string
	}{
		{"delete", "DELETE FROM orders"},
		{"insert", "INSERT INTO orders VALUES (1)"},
		{"update", "UPDATE orders SET status = 'x'"},
		{"drop", "DROP TABLE orders"},
		{"truncate", "TRUNCATE orders"},
		{"lowercase delete", "delete from orders"},
		{"grant", "GRANT ALL ON orders TO public"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Harden(tc.sql)
			require.Error(t, err)
			assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeForbiddenKeyword),
				"expected FORBIDDEN_KEYWORD, got %v", err)
		})
	}
}

func TestHardenKeywordCheckIsWholeWord(t *testing.T) {
	// Column names containing keyword substrings must pass.
	out, err := Harden("SELECT updated_total FROM orders ORDER BY updated_total DESC")
	require.NoError(t, err)
	assert.Contains(t, out, "updated_total")
}

func TestHardenRejectsSystemSchemas(t *testing.T) {
	cases := []string{
		"SELECT * FROM pg_catalog.pg_tables",
		"SELECT * FROM pg_tables",
		"SELECT * FROM information_schema.tables",
		"SELECT * FROM INFORMATION_SCHEMA.COLUMNS",
		"SELECT * FROM mysql.user",
	}
	for _, sqlText := range cases {
		t.Run(sqlText, func(t *testing.T) {
			_, err := Harden(sqlText)
			require.Error(t, err)
			assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeSystemSchemaAccess),
				"expected SYSTEM_SCHEMA_ACCESS, got %v", err)
		})
	}
}

func TestHardenRejectsNonSelect(t *testing.T) {
	_, err := Harden("WITH x AS (SELECT 1) SELECT * FROM x")
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeNotASelect))

	_, err = Harden("EXPLAIN SELECT * FROM orders")
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeNotASelect))
}

func TestHardenEnforcesTableAllowlist(t *testing.T) {
	for table := range AllowlistedTables {
		_, err := Harden(fmt.Sprintf("SELECT * FROM %s", table))
		assert.NoError(t, err, "allowlisted table %s must pass", table)
	}

	rejected := []string{"users", "organizations", "payments", "audit_log"}
	for _, table := range rejected {
		_, err := Harden(fmt.Sprintf("SELECT * FROM %s", table))
		require.Error(t, err, "table %s must be rejected", table)
		assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeTableNotAllowed))

		var stdErr *commonerrors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, table, stdErr.Metadata["table"])
	}
}

func TestHardenNormalizesQualifiedTableNames(t *testing.T) {
	out, err := Harden(`SELECT * FROM public."orders"`)
	require.NoError(t, err)
	assert.Contains(t, out, "orders")

	_, err = Harden(`SELECT * FROM public.users`)
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeTableNotAllowed))
}

func TestHardenChecksJoinedTables(t *testing.T) {
	_, err := Harden("SELECT o.id FROM orders o JOIN secrets s ON s.order_id = o.id")
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeTableNotAllowed))

	out, err := Harden("SELECT o.id FROM orders o JOIN order_items oi ON oi.order_id = o.id")
	require.NoError(t, err)
	assert.Contains(t, out, "JOIN order_items")
}

func TestHardenSkipsSubqueryReferences(t *testing.T) {
	out, err := Harden("SELECT * FROM (SELECT id FROM orders) sub")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestHardenClampsExcessiveLimit(t *testing.T) {
	out, err := Harden("SELECT * FROM orders LIMIT 3000")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT 1000")
	assert.NotContains(t, out, "LIMIT 3000")
}

func TestHardenPreservesSmallLimit(t *testing.T) {
	out, err := Harden("SELECT * FROM orders LIMIT 25")
	require.NoError(t, err)
	assert.Contains(t, out, "LIMIT 25")
}

func TestHardenAppendsDefaultLimit(t *testing.T) {
	out, err := Harden("SELECT * FROM orders")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "LIMIT 100"), "got %q", out)
}

func TestHardenIsIdempotent(t *testing.T) {
	inputs := []string{
		"SELECT * FROM orders LIMIT 3000",
		"SELECT * FROM orders",
		"SELECT time_span, net_sales FROM till_summaries LIMIT 10",
	}
	for _, in := range inputs {
		once, err := Harden(in)
		require.NoError(t, err)
		twice, err := Harden(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestHardenRejectsEmptyInput(t *testing.T) {
	_, err := Harden("   ")
	require.Error(t, err)
	assert.True(t, commonerrors.IsCode(err, commonerrors.ErrCodeNotASelect))
}

func TestHardenAllowlistRandomTableNames(t *testing.T) {
	// Random bare identifiers must only be accepted when allowlisted.
	rng := rand.New(rand.NewSource(1))
	letters := "abcdefghijklmnopqrstuvwxyz_"

	for i := 0; i < 200; i++ {
		n := 3 + rng.Intn(12)
		b := make([]byte, n)
		for j := range b {
			b[j] = letters[rng.Intn(len(letters))]
		}
		table := string(b)

		_, err := Harden(fmt.Sprintf("SELECT * FROM %s", table))
		if AllowlistedTables[table] {
			assert.NoError(t, err)
			continue
		}
		if err == nil {
			// The only accepted non-allowlisted names would be ones the
			// keyword or schema checks should have caught first.
			t.Fatalf("table %q escaped the allowlist", table)
		}
	}
}

func TestContainsForbiddenKeywordIsSubstringBased(t *testing.T) {
	keyword, found := containsForbiddenKeyword("SELECT * FROM orders WHERE note = 'dropped'")
	assert.True(t, found)
	assert.Equal(t, "DROP", keyword)

	_, found = containsForbiddenKeyword("SELECT net_sales FROM till_summaries")
	assert.False(t, found)
}
