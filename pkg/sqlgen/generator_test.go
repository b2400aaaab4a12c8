package sqlgen

import (
	"context"
	"testing"

	"loan-insights-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

type stubProvider struct {
	response string
	prompt   string
}

func (s *stubProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return s.response, nil
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.prompt = prompt
	return s.response, nil
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantSQL  string
		wantTag  string
	}{
		{
			name:    "plain select",
			raw:     "SELECT * FROM loan24",
			wantSQL: "SELECT * FROM loan24",
		},
		{
			name:    "fenced select",
			raw:     "```sql\nSELECT amount FROM loan24 WHERE status = 'pending'\n```",
			wantSQL: "SELECT amount FROM loan24 WHERE status = 'pending'",
		},
		{
			name:    "unwanted tag",
			raw:     "unwanted",
			wantTag: ClassUnwanted,
		},
		{
			name:    "tag with whitespace and case",
			raw:     "  Restricted \n",
			wantTag: ClassRestricted,
		},
		{
			name:    "sensitive tag",
			raw:     "sensitive",
			wantTag: ClassSensitive,
		},
		{
			name:    "non-select statement refused",
			raw:     "DELETE FROM loan24",
			wantTag: ClassRestricted,
		},
		{
			name:    "lowercase select accepted",
			raw:     "select count(*) from loan24",
			wantSQL: "select count(*) from loan24",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ParseOutput(tt.raw)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantSQL, res.SQL)
			assert.Equal(t, tt.wantTag, res.Classification)
			assert.Equal(t, tt.wantTag != "", res.IsClassified())
		})
	}
}

func TestGenerateIncludesRecentQueries(t *testing.T) {
	stub := &stubProvider{response: "SELECT * FROM loan24"}
	gen := NewGenerator(stub)

	res, err := gen.Generate(context.Background(), "and for last month?", []string{
		"Show pending loans",
		"How many EMIs are overdue?",
	})

	assert.NoError(t, err)
	assert.Equal(t, "SELECT * FROM loan24", res.SQL)
	assert.Contains(t, stub.prompt, "Show pending loans")
	assert.Contains(t, stub.prompt, "How many EMIs are overdue?")
	assert.Contains(t, stub.prompt, "and for last month?")
}
