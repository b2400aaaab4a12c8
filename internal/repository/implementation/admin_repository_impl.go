package implementation

import (
	"context"
	"errors"

	"loan-insights-be/internal/entity"
	"loan-insights-be/internal/mapper"
	"loan-insights-be/internal/model"
	"loan-insights-be/internal/repository/contract"
	"loan-insights-be/internal/repository/specification"

	"gorm.io/gorm"
)

type AdminRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AdminMapper
}

func NewAdminRepository(db *gorm.DB) contract.AdminRepository {
	return &AdminRepositoryImpl{
		db:     db,
		mapper: mapper.NewAdminMapper(),
	}
}

func (r *AdminRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AdminRepositoryImpl) Create(ctx context.Context, admin *entity.Admin) error {
	m := r.mapper.ToModel(admin)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*admin = *r.mapper.ToEntity(m)
	return nil
}

func (r *AdminRepositoryImpl) Update(ctx context.Context, admin *entity.Admin) error {
	m := r.mapper.ToModel(admin)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*admin = *r.mapper.ToEntity(m)
	return nil
}

func (r *AdminRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Admin, error) {
	var m model.Admin
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AdminRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Admin{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
