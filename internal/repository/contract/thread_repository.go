package contract

import (
	"context"
	"time"

	"loan-insights-be/internal/entity"
	"loan-insights-be/internal/repository/specification"
)

type ThreadRepository interface {
	Create(ctx context.Context, thread *entity.Thread) error
	UpdateEndTimestamp(ctx context.Context, threadId string, endTimestamp time.Time) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Thread, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Thread, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
