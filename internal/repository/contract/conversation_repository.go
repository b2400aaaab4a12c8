package contract

import (
	"context"

	"loan-insights-be/internal/entity"
	"loan-insights-be/internal/repository/specification"
)

type ConversationRepository interface {
	Create(ctx context.Context, conversation *entity.Conversation) error
	Exists(ctx context.Context, conversationId string) (bool, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
