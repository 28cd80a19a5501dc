// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-direct-chat/internal/domain"
)

// ConversationStats returns aggregate metadata for the (a, b) conversation:
// the total number of rows and the maximum UpdatedAt timestamp among them.
// UpdatedAt moves both on insert and on the read-flag sweep, so the derived
// ETag changes whenever either side would see different data.
//
// When the pair has no messages, the returned count is 0 and maxUpdatedAt
// is nil.
func ConversationStats(ctx context.Context, db *gorm.DB, a, b int) (count int64, maxUpdatedAt *time.Time, err error) {
	q := conversationScope(db.WithContext(ctx).Model(&domain.Message{}), a, b)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
