package sqlgen

import (
	"context"
	"fmt"
	"strings"

	"loan-insights-be/pkg/llm"
)

// Classification tags returned instead of SQL when the question should not
// reach the database.
const (
	ClassUnwanted   = "unwanted"
	ClassRestricted = "restricted"
	ClassSensitive  = "sensitive"
)

const systemInstruction = "Analyze the following natural language request and classify it as follows: " +
	"Return 'unwanted' if it is not related to loan, emi, loans, or banking. " +
	"Return 'restricted' if it attempts to generate SQL queries other than SELECT queries. " +
	"Return 'sensitive' if it requests CVV details. " +
	"Otherwise, convert the request into an SQL query using the table 'loan24'. " +
	"Only return the classification or the SQL query, nothing else. " +
	"The SQL query should always start with SELECT."

// Result is either a SELECT statement or a classification tag, never both.
type Result struct {
	SQL            string
	Classification string
}

func (r Result) IsClassified() bool {
	return r.Classification != ""
}

type Generator struct {
	provider llm.LLMProvider
}

func NewGenerator(provider llm.LLMProvider) *Generator {
	return &Generator{provider: provider}
}

// Generate translates a natural-language question into SQL, feeding the last
// few queries of the thread as context so follow-up questions resolve.
func (g *Generator) Generate(ctx context.Context, userText string, recentQueries []string) (Result, error) {
	prompt := buildPrompt(userText, recentQueries)

	raw, err := g.provider.Generate(ctx, prompt, llm.WithTemperature(0))
	if err != nil {
		return Result{}, fmt.Errorf("sql generation: %w", err)
	}

	return ParseOutput(raw)
}

func buildPrompt(userText string, recentQueries []string) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	if len(recentQueries) > 0 {
		b.WriteString("\n\nPrevious questions in this conversation, oldest first:\n")
		for _, q := range recentQueries {
			b.WriteString("- ")
			b.WriteString(q)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nRequest: ")
	b.WriteString(userText)
	return b.String()
}

// ParseOutput normalizes a raw model response into a Result. Markdown fences
// and a leading "sql" language hint are stripped before classification.
func ParseOutput(raw string) (Result, error) {
	out := strings.TrimSpace(raw)
	out = strings.Trim(out, "`")
	out = strings.TrimPrefix(out, "sql")
	out = strings.TrimSpace(out)

	switch strings.ToLower(out) {
	case ClassUnwanted:
		return Result{Classification: ClassUnwanted}, nil
	case ClassRestricted:
		return Result{Classification: ClassRestricted}, nil
	case ClassSensitive:
		return Result{Classification: ClassSensitive}, nil
	}

	if strings.HasPrefix(strings.ToLower(out), "select") {
		return Result{SQL: out}, nil
	}

	// Anything that is neither a tag nor a SELECT is treated as restricted
	// rather than executed.
	return Result{Classification: ClassRestricted}, nil
}
