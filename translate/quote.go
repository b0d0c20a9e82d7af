package translate

import (
	"math"
	"strconv"
	"strings"
)

// escapeString escapes single quotes in a string value for SQL.
func escapeString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// quoteLiteral returns a SQL string literal with proper escaping.
func quoteLiteral(s string) string {
	return "'" + escapeString(s) + "'"
}

// quoteIdentifier always quotes. DuckDB treats unquoted keywords specially,
// and plan column names are arbitrary user strings.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdentifiers(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdentifier(n)
	}
	return strings.Join(quoted, ", ")
}

func formatInt(v int64) string {
	if v < 0 {
		return "(" + strconv.FormatInt(v, 10) + ")"
	}
	return strconv.FormatInt(v, 10)
}

// formatFloat renders a DOUBLE literal. Bare decimals would bind as DECIMAL.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "CAST('NaN' AS DOUBLE)"
	case math.IsInf(v, 1):
		return "CAST('Infinity' AS DOUBLE)"
	case math.IsInf(v, -1):
		return "CAST('-Infinity' AS DOUBLE)"
	}
	return "CAST(" + strconv.FormatFloat(v, 'g', -1, 64) + " AS DOUBLE)"
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

// formatBigint renders v clamped to the BIGINT range DuckDB binds LIMIT as.
// A count that large already exceeds any row count.
func formatBigint(v uint64) string {
	if v > math.MaxInt64 {
		v = math.MaxInt64
	}
	return formatUint(v)
}
