// Package charts suggests and renders a chart artifact for query results.
// Rendering is best-effort: any failure yields an empty artifact path, never
// an error that blocks the response.
package charts

import "strings"

type ChartKind string

const (
	KindNone ChartKind = ""
	KindBar  ChartKind = "bar"
	KindLine ChartKind = "line"
	KindPie  ChartKind = "pie"
)

// SuggestChart picks a chart kind from the question's wording and the shape
// of the result set.
func SuggestChart(rows []map[string]interface{}, userText string) ChartKind {
	if len(rows) < 2 {
		return KindNone
	}

	label, value := pickAxes(rows)
	if label == "" || value == "" {
		return KindNone
	}

	text := strings.ToLower(userText)
	switch {
	case containsAny(text, "trend", "over time", "monthly", "weekly", "daily", "growth"):
		return KindLine
	case containsAny(text, "share", "percentage", "proportion", "distribution", "breakdown"):
		return KindPie
	default:
		return KindBar
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// pickAxes finds the first textual column (labels) and the first numeric
// column (values) in the result set.
func pickAxes(rows []map[string]interface{}) (label, value string) {
	if len(rows) == 0 {
		return "", ""
	}
	for k, v := range rows[0] {
		switch v.(type) {
		case string:
			if label == "" {
				label = k
			}
		case int, int32, int64, float32, float64:
			if value == "" {
				value = k
			}
		}
	}
	return label, value
}

func numericValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
