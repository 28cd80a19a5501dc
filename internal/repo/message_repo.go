// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message
// model: conversation-scoped inserts, paginated reads, and the read-flag
// sweep.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// A "conversation" is the unordered pair (a, b): every message where either
// user is the sender and the other the recipient.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-direct-chat/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateMessage inserts a new message row with the given (already encrypted)
// body and an unread flag. CreatedAt is set to UTC.
func CreateMessage(ctx context.Context, db *gorm.DB, senderID, recipientID int, ciphertext string) (*domain.Message, error) {
	m := &domain.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        ciphertext,
		IsRead:      false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// conversationScope narrows a query to both directions of the (a, b) pair.
func conversationScope(db *gorm.DB, a, b int) *gorm.DB {
	return db.Where(
		"(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
		a, b, b, a,
	)
}

// CountConversation returns the total number of messages exchanged between
// the two users, in either direction.
func CountConversation(ctx context.Context, db *gorm.DB, a, b int) (int64, error) {
	var total int64
	err := conversationScope(db.WithContext(ctx).Model(&domain.Message{}), a, b).
		Count(&total).Error
	return total, err
}

// ListConversationPage returns a page of the conversation ordered by recency
// (CreatedAt DESC, ID DESC; the id breaks same-timestamp ties so paging is
// deterministic).
func ListConversationPage(ctx context.Context, db *gorm.DB, a, b int, offset, limit int) ([]domain.Message, error) {
	var out []domain.Message
	err := conversationScope(db.WithContext(ctx), a, b).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// MarkConversationRead flips every unread message sent by senderID to
// recipientID to read, in a single conditional UPDATE. It returns the number
// of rows changed. The is_read guard makes the sweep atomic with respect to
// concurrent sends: a row inserted after the statement runs stays unread.
func MarkConversationRead(ctx context.Context, db *gorm.DB, senderID, recipientID int) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("sender_id = ? AND recipient_id = ? AND is_read = ?", senderID, recipientID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

// GetMessage fetches a message by ID, or ErrNotFound.
func GetMessage(ctx context.Context, db *gorm.DB, id uint) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
