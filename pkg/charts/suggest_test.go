package charts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"status": "pending", "total": int64(12)},
		{"status": "approved", "total": int64(30)},
		{"status": "rejected", "total": int64(5)},
	}
}

func TestSuggestChart(t *testing.T) {
	tests := []struct {
		name     string
		rows     []map[string]interface{}
		userText string
		want     ChartKind
	}{
		{
			name:     "trend wording picks line",
			rows:     sampleRows(),
			userText: "Show the monthly trend of disbursed loans",
			want:     KindLine,
		},
		{
			name:     "distribution wording picks pie",
			rows:     sampleRows(),
			userText: "What is the distribution of loans by status?",
			want:     KindPie,
		},
		{
			name:     "default is bar",
			rows:     sampleRows(),
			userText: "How many loans per status?",
			want:     KindBar,
		},
		{
			name:     "single row gets no chart",
			rows:     sampleRows()[:1],
			userText: "How many loans total?",
			want:     KindNone,
		},
		{
			name: "no numeric column gets no chart",
			rows: []map[string]interface{}{
				{"name": "A"}, {"name": "B"},
			},
			userText: "List customer names",
			want:     KindNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestChart(tt.rows, tt.userText))
		})
	}
}
