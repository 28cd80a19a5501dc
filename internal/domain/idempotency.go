package domain

import "time"

// Idempotency records the outcome of a previously processed send, keyed by
// (user_id, recipient_id, key). A retry carrying the same Idempotency-Key
// within the TTL window replays the stored message instead of creating a
// duplicate.
type Idempotency struct {
	ID          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	UserID      int       `gorm:"not null;uniqueIndex:ux_user_recipient_key,priority:1"`
	RecipientID int       `gorm:"not null;uniqueIndex:ux_user_recipient_key,priority:2"`
	Key         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_user_recipient_key,priority:3"`
	MessageID   uint      `gorm:"not null"`
	Status      int       `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	ExpiresAt   time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
