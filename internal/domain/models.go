// Package domain defines the persistence models for users and direct
// messages. These types are mapped with GORM and form the core data layer
// of the chat application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User represents a chat participant. Identity is provided by the external
// authentication layer; this table carries only what the message pipeline
// needs (a stable integer id and a display name).
//
// Fields:
//   - ID: auto-increment integer primary key.
//   - Name: display name shown next to messages.
//   - Email: unique login identifier (owned by the auth collaborator).
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID        int       `json:"id"    gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name"  gorm:"type:varchar(255);not null"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Message represents a single direct message between two users. The body is
// stored encrypted at rest; decryption happens in the service layer when a
// history page is assembled.
//
// Fields:
//   - ID: auto-increment integer primary key (monotonic; breaks ordering ties).
//   - SenderID / RecipientID: the two participants; never equal.
//   - Body: ciphertext produced by the secretbox codec.
//   - IsRead: read flag; flips unread→read only, never back.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (account-lifecycle concern, not used
//     by the message pipeline itself).
type Message struct {
	ID          uint           `json:"id"           gorm:"primaryKey;autoIncrement"`
	SenderID    int            `json:"sender_id"    gorm:"not null;index:idx_pair_msgs,priority:1"`
	RecipientID int            `json:"recipient_id" gorm:"not null;index:idx_pair_msgs,priority:2"`
	Body        string         `json:"-"            gorm:"type:text;not null"`
	IsRead      bool           `json:"is_read"      gorm:"not null;default:false"`
	CreatedAt   time.Time      `json:"created_at"   gorm:"index:idx_pair_msgs,priority:3"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "chat" }
