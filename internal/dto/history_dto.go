package dto

import "time"

type ThreadSummary struct {
	ThreadId string `json:"thread_id"`
	ChatName string `json:"chat_name"`
}

type ListThreadsResponse struct {
	Threads      []ThreadSummary `json:"threads"`
	Page         int             `json:"page"`
	Limit        int             `json:"limit"`
	TotalThreads int64           `json:"total_threads"`
	TotalPages   int64           `json:"total_pages"`
}

type ConversationRecord struct {
	ConversationId string    `json:"conversation_id"`
	Query          string    `json:"query"`
	Response       string    `json:"response"`
	Visualization  *string   `json:"visualization,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	Cols           []string  `json:"cols"`
	Rows           int       `json:"rows"`
	ExcelPath      string    `json:"excel_path,omitempty"`
}

type ListConversationsResponse struct {
	Conversations      []ConversationRecord `json:"conversations"`
	Page               int                  `json:"page"`
	Limit              int                  `json:"limit"`
	TotalPages         int64                `json:"total_pages"`
	TotalConversations int64                `json:"total_conversations"`
}

type CreateOrAppendResult struct {
	ThreadId          string
	ConversationId    string
	ConversationCount *int64 // nil when the cache mirror write failed
}
