// Package sqlparse extracts the table and column names a generated SELECT
// statement touches, for recording alongside each conversation.
package sqlparse

import (
	"regexp"
	"strings"
)

var (
	fromPattern   = regexp.MustCompile(`from\s+([a-z0-9_.]+(?:\s*(?:as)?\s*[a-z0-9_]+)?(?:\s*,\s*[a-z0-9_.]+(?:\s*(?:as)?\s*[a-z0-9_]+)?)*)`)
	joinPattern   = regexp.MustCompile(`join\s+([a-z0-9_.]+(?:\s*(?:as)?\s*[a-z0-9_]+)?)`)
	selectPattern = regexp.MustCompile(`(?s)select\s+(.*?)\s+from`)
	asPattern     = regexp.MustCompile(`\s+as\s+`)
	parenPattern  = regexp.MustCompile(`\(([^()]*)\)`)
)

// Aggregate functions are dropped from the column list since they describe a
// computation, not a referenced column.
var aggregateFunctions = []string{
	"count", "sum", "avg", "min", "max", "stdev", "variance",
	"first", "last", "group_concat", "string_agg", "array_agg",
	"listagg", "median", "percentile", "mode", "rank", "dense_rank",
	"row_number", "ntile", "lead", "lag",
}

// ExtractTablesAndColumns returns the tables named after FROM/JOIN and the
// columns in the SELECT clause, deduplicated in first-seen order.
func ExtractTablesAndColumns(query string) (tables []string, columns []string) {
	q := strings.ToLower(query)

	tables = extractTables(q)
	columns = extractColumns(q)
	return tables, columns
}

func extractTables(q string) []string {
	tables := make([]string, 0)

	if m := fromPattern.FindStringSubmatch(q); m != nil {
		for _, table := range strings.Split(m[1], ",") {
			table = asPattern.ReplaceAllString(table, " ")
			fields := strings.Fields(table)
			if len(fields) > 0 {
				tables = append(tables, fields[0])
			}
		}
	}

	for _, m := range joinPattern.FindAllStringSubmatch(q, -1) {
		table := asPattern.ReplaceAllString(m[1], " ")
		fields := strings.Fields(table)
		if len(fields) > 0 {
			tables = append(tables, fields[0])
		}
	}

	return dedupe(tables)
}

func extractColumns(q string) []string {
	m := selectPattern.FindStringSubmatch(q)
	if m == nil {
		return []string{}
	}

	columns := make([]string, 0)
	for _, col := range splitTopLevel(m[1]) {
		col = strings.TrimSpace(col)
		if idx := strings.Index(col, " as "); idx >= 0 {
			col = strings.TrimSpace(col[:idx])
		}

		if isAggregate(col) {
			continue
		}

		// Non-aggregate function call: pull the column out of the parens,
		// skipping literals.
		if strings.Contains(col, "(") && strings.Contains(col, ")") {
			if inner := parenPattern.FindStringSubmatch(col); inner != nil {
				extracted := strings.TrimSpace(inner[1])
				if strings.HasPrefix(extracted, "'") || strings.HasPrefix(extracted, `"`) || isDigits(extracted) {
					continue
				}
				col = extracted
			}
		}

		if col == "*" {
			columns = append(columns, col)
			continue
		}

		// Strip table prefix
		if idx := strings.Index(col, "."); idx >= 0 {
			col = col[idx+1:]
		}
		columns = append(columns, col)
	}

	return dedupe(columns)
}

// splitTopLevel splits a SELECT clause on commas that are not inside parens.
func splitTopLevel(clause string) []string {
	cols := make([]string, 0)
	var current strings.Builder
	depth := 0

	for _, ch := range clause {
		switch {
		case ch == '(':
			depth++
			current.WriteRune(ch)
		case ch == ')' && depth > 0:
			depth--
			current.WriteRune(ch)
		case ch == ',' && depth == 0:
			cols = append(cols, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		cols = append(cols, strings.TrimSpace(current.String()))
	}

	return cols
}

func isAggregate(col string) bool {
	lower := strings.ToLower(col)
	for _, fn := range aggregateFunctions {
		if strings.HasPrefix(lower, fn+"(") {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return unique
}
