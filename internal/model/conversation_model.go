package model

import (
	"time"

	"gorm.io/datatypes"
)

type Conversation struct {
	ConversationId string         `gorm:"type:varchar(64);primaryKey"`
	ThreadId       string         `gorm:"type:varchar(64);not null;index"`
	AdminId        string         `gorm:"type:varchar(64);not null;index"`
	Query          string         `gorm:"type:text;not null"`
	Response       string         `gorm:"type:text;not null"`
	Visualization  *string        `gorm:"type:text"`
	Timestamp      time.Time      `gorm:"not null;index"`
	DataType       datatypes.JSON `gorm:"type:jsonb"`
	Cols           datatypes.JSON `gorm:"type:jsonb"`
	Rows           int            `gorm:"not null;default:0"`
	ExcelPath      string         `gorm:"type:text"`
}

func (Conversation) TableName() string {
	return "conversations"
}
