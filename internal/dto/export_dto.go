package dto

// PublishExportMessage is the payload handed to the export worker over the
// in-process message bus.
type PublishExportMessage struct {
	ConversationId string                   `json:"conversation_id"`
	Rows           []map[string]interface{} `json:"rows"`
}
