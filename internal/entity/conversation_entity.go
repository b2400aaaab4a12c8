package entity

import "time"

// Conversation is one question/answer exchange within a thread. AdminId is
// denormalized for access-control filtering on history queries.
type Conversation struct {
	ConversationId string
	ThreadId       string
	AdminId        string
	Query          string
	Response       string
	Visualization  *string
	Timestamp      time.Time
	DataType       []string // table names touched by the generated SQL
	Cols           []string // column names referenced
	Rows           int
	ExcelPath      string
}
