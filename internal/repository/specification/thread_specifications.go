package specification

import "gorm.io/gorm"

type ByAdminId struct {
	AdminId string
}

func (s ByAdminId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("admin_id = ?", s.AdminId)
}

type ByThreadId struct {
	ThreadId string
}

func (s ByThreadId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thread_id = ?", s.ThreadId)
}

type ByEmail struct {
	Email string
}

func (s ByEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("email = ?", s.Email)
}
