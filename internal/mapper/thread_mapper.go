package mapper

import (
	"encoding/json"

	"loan-insights-be/internal/entity"
	"loan-insights-be/internal/model"

	"gorm.io/datatypes"
)

type ThreadMapper struct{}

func NewThreadMapper() *ThreadMapper {
	return &ThreadMapper{}
}

// Thread Mappers

func (m *ThreadMapper) ThreadToEntity(t *model.Thread) *entity.Thread {
	if t == nil {
		return nil
	}

	return &entity.Thread{
		ThreadId:       t.ThreadId,
		AdminId:        t.AdminId,
		ChatName:       t.ChatName,
		StartTimestamp: t.StartTimestamp,
		EndTimestamp:   t.EndTimestamp,
	}
}

func (m *ThreadMapper) ThreadToModel(t *entity.Thread) *model.Thread {
	if t == nil {
		return nil
	}

	return &model.Thread{
		ThreadId:       t.ThreadId,
		AdminId:        t.AdminId,
		ChatName:       t.ChatName,
		StartTimestamp: t.StartTimestamp,
		EndTimestamp:   t.EndTimestamp,
	}
}

// Conversation Mappers

func (m *ThreadMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}

	return &entity.Conversation{
		ConversationId: c.ConversationId,
		ThreadId:       c.ThreadId,
		AdminId:        c.AdminId,
		Query:          c.Query,
		Response:       c.Response,
		Visualization:  c.Visualization,
		Timestamp:      c.Timestamp,
		DataType:       jsonToStrings(c.DataType),
		Cols:           jsonToStrings(c.Cols),
		Rows:           c.Rows,
		ExcelPath:      c.ExcelPath,
	}
}

func (m *ThreadMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}

	return &model.Conversation{
		ConversationId: c.ConversationId,
		ThreadId:       c.ThreadId,
		AdminId:        c.AdminId,
		Query:          c.Query,
		Response:       c.Response,
		Visualization:  c.Visualization,
		Timestamp:      c.Timestamp,
		DataType:       stringsToJSON(c.DataType),
		Cols:           stringsToJSON(c.Cols),
		Rows:           c.Rows,
		ExcelPath:      c.ExcelPath,
	}
}

func (m *ThreadMapper) ConversationsToEntities(models []*model.Conversation) []*entity.Conversation {
	entities := make([]*entity.Conversation, len(models))
	for i, c := range models {
		entities[i] = m.ConversationToEntity(c)
	}
	return entities
}

func stringsToJSON(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(raw)
}

func jsonToStrings(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return []string{}
	}
	return values
}
