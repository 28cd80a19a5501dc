package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-direct-chat/internal/domain"
)

// Store adapts this package's free functions to the repository interface the
// service layer consumes. It carries no state; the *gorm.DB flows through
// every call so the service can run several operations in one transaction.
type Store struct{}

func (Store) CreateMessage(ctx context.Context, db *gorm.DB, senderID, recipientID int, ciphertext string) (*domain.Message, error) {
	return CreateMessage(ctx, db, senderID, recipientID, ciphertext)
}

func (Store) CountConversation(ctx context.Context, db *gorm.DB, a, b int) (int64, error) {
	return CountConversation(ctx, db, a, b)
}

func (Store) ListConversationPage(ctx context.Context, db *gorm.DB, a, b, offset, limit int) ([]domain.Message, error) {
	return ListConversationPage(ctx, db, a, b, offset, limit)
}

func (Store) MarkConversationRead(ctx context.Context, db *gorm.DB, senderID, recipientID int) (int64, error) {
	return MarkConversationRead(ctx, db, senderID, recipientID)
}

func (Store) GetMessage(ctx context.Context, db *gorm.DB, id uint) (*domain.Message, error) {
	return GetMessage(ctx, db, id)
}

func (Store) GetUser(ctx context.Context, db *gorm.DB, id int) (*domain.User, error) {
	return GetUser(ctx, db, id)
}

func (Store) ListUsersExcept(ctx context.Context, db *gorm.DB, userID int) ([]domain.User, error) {
	return ListUsersExcept(ctx, db, userID)
}
