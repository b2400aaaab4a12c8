package unitofwork

import (
	"context"

	"loan-insights-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	AdminRepository() contract.AdminRepository
	ThreadRepository() contract.ThreadRepository
	ConversationRepository() contract.ConversationRepository
}
