// Package services – ChatService
//
// This file implements the ChatService, which owns the two-party message
// flow: validating and encrypting outgoing messages, paginating decrypted
// history, sweeping read flags, and handing stored messages to the broadcast
// publisher. Persistence and notification are deliberately decoupled: the
// row is durable before the publish runs, and a publish failure never
// surfaces to the sender.
//
// Service-level errors (e.g., ErrSelfMessage) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-direct-chat/internal/domain"
)

// DecryptFallback replaces the body of any row whose ciphertext cannot be
// opened. One corrupt row must not break an entire history page.
const DecryptFallback = "Message cannot be decrypted."

// MessageRepo defines the repository contract required by ChatService.
// Implementations are responsible for persistence of messages and the user
// directory. The *gorm.DB parameter lets the service run several calls
// inside one transaction.
type MessageRepo interface {
	// CreateMessage inserts an encrypted message row, unread.
	CreateMessage(ctx context.Context, db *gorm.DB, senderID, recipientID int, ciphertext string) (*domain.Message, error)

	// CountConversation returns the total messages between the pair.
	CountConversation(ctx context.Context, db *gorm.DB, a, b int) (int64, error)

	// ListConversationPage returns a page of the pair's messages, newest first.
	ListConversationPage(ctx context.Context, db *gorm.DB, a, b, offset, limit int) ([]domain.Message, error)

	// MarkConversationRead flips unread sender→recipient rows to read.
	MarkConversationRead(ctx context.Context, db *gorm.DB, senderID, recipientID int) (int64, error)

	// GetMessage fetches one message by id.
	GetMessage(ctx context.Context, db *gorm.DB, id uint) (*domain.Message, error)

	// GetUser fetches a user by id.
	GetUser(ctx context.Context, db *gorm.DB, id int) (*domain.User, error)

	// ListUsersExcept returns the directory minus the given user.
	ListUsersExcept(ctx context.Context, db *gorm.DB, userID int) ([]domain.User, error)
}

// Codec is the at-rest encryption contract consumed by the service.
type Codec interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// MessagePublisher receives stored messages for channel fan-out. Best
// effort: implementations must not block and must not report failure to
// the send path.
type MessagePublisher interface {
	PublishMessage(m *domain.Message, senderName, plaintext string)
}

// MessageView is a decrypted, display-ready projection of a message row.
type MessageView struct {
	ID         uint      `json:"id"`
	Message    string    `json:"message"`
	SenderID   int       `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
}

// UserView is the directory projection of a user.
type UserView struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ChatService provides the message operations: send, history with the
// read-on-view sweep, the standalone mark-read path, and the recipient
// directory.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the message/user repository used by this service.
	Repo MessageRepo
	// Codec encrypts bodies at rest and decrypts them for display.
	Codec Codec
	// Publisher receives stored messages for broadcast; may be nil in tests.
	Publisher MessagePublisher

	// MaxMessageRunes caps message bodies by rune length.
	MaxMessageRunes int
	// PageSize is the default history page size.
	PageSize int
}

// NewChatService constructs a ChatService with the legacy limits: 500-rune
// bodies and 10-message pages.
func NewChatService(db *gorm.DB, r MessageRepo, codec Codec, pub MessagePublisher) *ChatService {
	return &ChatService{
		DB:              db,
		Repo:            r,
		Codec:           codec,
		Publisher:       pub,
		MaxMessageRunes: 500,
		PageSize:        10,
	}
}

// Send validates, encrypts, and persists a message from senderID to
// recipientID, then broadcasts it best-effort. The returned view carries the
// plaintext body (the caller already knows it; the row does not).
func (s *ChatService) Send(ctx context.Context, senderID, recipientID int, body string) (MessageView, error) {
	if recipientID <= 0 {
		return MessageView{}, ErrInvalidRecipient
	}
	if senderID == recipientID {
		return MessageView{}, ErrSelfMessage
	}
	if body == "" {
		return MessageView{}, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(body) > s.MaxMessageRunes {
		return MessageView{}, ErrMessageTooLong
	}

	sender, err := s.Repo.GetUser(ctx, s.DB, senderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MessageView{}, ErrUserNotFound
		}
		return MessageView{}, err
	}

	ciphertext, err := s.Codec.Encrypt(body)
	if err != nil {
		return MessageView{}, err
	}

	m, err := s.Repo.CreateMessage(ctx, s.DB, senderID, recipientID, ciphertext)
	if err != nil {
		return MessageView{}, err
	}

	// Row is durable; notification is best effort from here on.
	if s.Publisher != nil {
		s.Publisher.PublishMessage(m, sender.Name, body)
	}

	return MessageView{
		ID:         m.ID,
		Message:    body,
		SenderID:   senderID,
		SenderName: sender.Name,
		Timestamp:  m.CreatedAt,
		IsRead:     m.IsRead,
	}, nil
}

// History returns one page of the conversation between currentUserID and
// recipientID, newest first, with bodies decrypted. Viewing the page marks
// every unread recipient→current message as read; the sweep and the page
// read run in one transaction so a concurrent send cannot interleave between
// them.
func (s *ChatService) History(ctx context.Context, currentUserID, recipientID, page, pageSize int) ([]MessageView, int64, error) {
	if recipientID <= 0 {
		return nil, 0, ErrInvalidRecipient
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.PageSize
	}
	offset := (page - 1) * pageSize

	var (
		rows  []domain.Message
		total int64
	)
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := s.Repo.MarkConversationRead(ctx, tx, recipientID, currentUserID); err != nil {
			return err
		}
		var err error
		if total, err = s.Repo.CountConversation(ctx, tx, currentUserID, recipientID); err != nil {
			return err
		}
		if total == 0 {
			return nil
		}
		rows, err = s.Repo.ListConversationPage(ctx, tx, currentUserID, recipientID, offset, pageSize)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	names, err := s.displayNames(ctx, currentUserID, recipientID)
	if err != nil {
		return nil, 0, err
	}

	out := make([]MessageView, 0, len(rows))
	for _, m := range rows {
		out = append(out, s.view(m, names[m.SenderID]))
	}
	return out, total, nil
}

// MarkRead flips every unread message from senderID to recipientID to read.
// The caller must be the receiving side: marking one's own sent messages
// read fails closed with ErrSelfMark.
func (s *ChatService) MarkRead(ctx context.Context, currentUserID, senderID, recipientID int) error {
	if senderID <= 0 {
		return ErrInvalidSender
	}
	if recipientID <= 0 {
		return ErrInvalidRecipient
	}
	if currentUserID == senderID {
		return ErrSelfMark
	}
	_, err := s.Repo.MarkConversationRead(ctx, s.DB, senderID, recipientID)
	return err
}

// MessageByID returns the decrypted view of a single stored message. Used by
// the idempotent-replay path of the store-message endpoint.
func (s *ChatService) MessageByID(ctx context.Context, id uint) (MessageView, error) {
	m, err := s.Repo.GetMessage(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MessageView{}, ErrMessageNotFound
		}
		return MessageView{}, err
	}
	name := ""
	if sender, err := s.Repo.GetUser(ctx, s.DB, m.SenderID); err == nil {
		name = sender.Name
	}
	return s.view(*m, name), nil
}

// ListOtherUsers returns every user except the caller, projected to
// (id, name) for the recipient picker.
func (s *ChatService) ListOtherUsers(ctx context.Context, currentUserID int) ([]UserView, error) {
	users, err := s.Repo.ListUsersExcept(ctx, s.DB, currentUserID)
	if err != nil {
		return nil, err
	}
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, UserView{ID: u.ID, Name: u.Name})
	}
	return out, nil
}

// view decrypts one row into its display projection, substituting the
// fallback text when the ciphertext cannot be opened.
func (s *ChatService) view(m domain.Message, senderName string) MessageView {
	plaintext, err := s.Codec.Decrypt(m.Body)
	if err != nil {
		// Recoverable by contract: log, degrade to the placeholder.
		log.Error().Uint("message_id", m.ID).Err(err).Msg("decryption error")
		plaintext = DecryptFallback
	}
	return MessageView{
		ID:         m.ID,
		Message:    plaintext,
		SenderID:   m.SenderID,
		SenderName: senderName,
		Timestamp:  m.CreatedAt,
		IsRead:     m.IsRead,
	}
}

// displayNames resolves the two participants' display names keyed by id.
// A missing user (deleted account) maps to an empty name rather than an
// error so old conversations still render.
func (s *ChatService) displayNames(ctx context.Context, a, b int) (map[int]string, error) {
	names := make(map[int]string, 2)
	for _, id := range []int{a, b} {
		u, err := s.Repo.GetUser(ctx, s.DB, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				names[id] = ""
				continue
			}
			return nil, err
		}
		names[id] = u.Name
	}
	return names, nil
}
