package model

import "time"

type Thread struct {
	ThreadId       string     `gorm:"type:varchar(64);primaryKey"`
	AdminId        string     `gorm:"type:varchar(64);not null;index"` // Admin ownership for data isolation
	ChatName       string     `gorm:"type:text;not null"`
	StartTimestamp time.Time  `gorm:"not null"`
	EndTimestamp   *time.Time `gorm:""`
}

func (Thread) TableName() string {
	return "threads"
}
