package mapper

import (
	"time"

	"loan-insights-be/internal/entity"
	"loan-insights-be/internal/model"
)

type AdminMapper struct{}

func NewAdminMapper() *AdminMapper {
	return &AdminMapper{}
}

func (m *AdminMapper) ToEntity(a *model.Admin) *entity.Admin {
	if a == nil {
		return nil
	}

	var updatedAt *time.Time
	if !a.UpdatedAt.IsZero() {
		t := a.UpdatedAt
		updatedAt = &t
	}

	return &entity.Admin{
		Id:            a.Id,
		Email:         a.Email,
		FullName:      a.FullName,
		PasswordHash:  a.PasswordHash,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}

func (m *AdminMapper) ToModel(a *entity.Admin) *model.Admin {
	if a == nil {
		return nil
	}

	var updatedAt time.Time
	if a.UpdatedAt != nil {
		updatedAt = *a.UpdatedAt
	}

	return &model.Admin{
		Id:            a.Id,
		Email:         a.Email,
		FullName:      a.FullName,
		PasswordHash:  a.PasswordHash,
		EmailVerified: a.EmailVerified,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     updatedAt,
	}
}
