package dto

type GenerateResponseRequest struct {
	UserInput string `json:"user_input" validate:"required"`
	ThreadId  string `json:"thread_id,omitempty"`
}

type GenerateResponseResult struct {
	SQLQuery          string `json:"sql_query,omitempty"`
	Results           string `json:"results,omitempty"`
	Message           string `json:"message,omitempty"`
	ThreadId          string `json:"thread_id,omitempty"`
	ConversationId    string `json:"conversation_id,omitempty"`
	ConversationCount *int64 `json:"conversation_count,omitempty"`
	ChartType         string `json:"chart_type,omitempty"`
	ChartPath         string `json:"chart_path,omitempty"`
	ExcelPath         string `json:"excel_path,omitempty"`
}
