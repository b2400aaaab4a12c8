// Package formatter turns raw query results into a readable answer via the
// generative model.
package formatter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-insights-be/pkg/llm"
)

type Formatter struct {
	provider llm.LLMProvider
}

func NewFormatter(provider llm.LLMProvider) *Formatter {
	return &Formatter{provider: provider}
}

// Format renders the rows as indented JSON (dates serialized ISO-8601) and
// asks the model for a readable summary.
func (f *Formatter) Format(ctx context.Context, rows []map[string]interface{}, userText string) (string, error) {
	data, err := json.MarshalIndent(normalizeRows(rows), "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize results: %w", err)
	}

	prompt := fmt.Sprintf(
		"The admin asked: %q\nFormat the following database query results into a readable sentence with insights:\n\n%s",
		userText, string(data),
	)

	summary, err := f.provider.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("format results: %w", err)
	}
	return summary, nil
}

func normalizeRows(rows []map[string]interface{}) []map[string]interface{} {
	normalized := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out := make(map[string]interface{}, len(row))
		for k, v := range row {
			if t, ok := v.(time.Time); ok {
				out[k] = t.Format(time.RFC3339)
				continue
			}
			out[k] = v
		}
		normalized[i] = out
	}
	return normalized
}
