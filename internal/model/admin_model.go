package model

import (
	"time"

	"github.com/google/uuid"
)

type Admin struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName      string    `gorm:"type:varchar(255);not null"`
	PasswordHash  string    `gorm:"type:text;not null"`
	EmailVerified bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (Admin) TableName() string {
	return "admins"
}
