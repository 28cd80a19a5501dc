// Handler wiring and shared DTOs.
//
// Handlers are transport-thin: they validate and normalize inputs, delegate to
// the application service, and translate results into HTTP responses
// (including conditional responses and idempotency semantics). Business rules
// live in internal/services; broadcast delivery lives in internal/broadcast.
package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-direct-chat/internal/broadcast"
	"github.com/tbourn/go-direct-chat/internal/services"
)

//
// Service contracts (context-aware)
//

// ChatService defines the message operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatService interface {
	// Send validates, encrypts, stores, and broadcasts a message.
	Send(ctx context.Context, senderID, recipientID int, body string) (services.MessageView, error)
	// History returns one decrypted page of the pair's conversation plus the
	// total message count, sweeping unread incoming messages to read.
	History(ctx context.Context, currentUserID, recipientID, page, pageSize int) ([]services.MessageView, int64, error)
	// MarkRead flips unread sender→recipient messages to read.
	MarkRead(ctx context.Context, currentUserID, senderID, recipientID int) error
	// MessageByID returns the decrypted view of one stored message.
	MessageByID(ctx context.Context, id uint) (services.MessageView, error)
	// ListOtherUsers returns the recipient directory minus the caller.
	ListOtherUsers(ctx context.Context, currentUserID int) ([]services.UserView, error)
}

//
// Handler wiring
//

// Options carries the knobs the handlers need beyond their collaborators.
type Options struct {
	// PageSize is the history page size used for pagination envelopes.
	PageSize int
	// IdempotencyTTL bounds how long a send's Idempotency-Key stays valid.
	IdempotencyTTL time.Duration
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

// Handlers groups the HTTP endpoints for messages, users, and live streams.
// It depends on the abstract service interface to keep transport concerns
// separate from business logic; the *gorm.DB handle is used only for the
// transport-level extras (ETag stats, idempotency records).
type Handlers struct {
	svc ChatService
	db  *gorm.DB
	hub *broadcast.Hub

	pageSize  int
	idemTTL   time.Duration
	heartbeat time.Duration
}

// New constructs a Handlers instance bound to the given collaborators.
// Zero option values fall back to: 10-message pages, 24h idempotency TTL,
// 25s heartbeats.
func New(svc ChatService, db *gorm.DB, hub *broadcast.Hub, opt Options) *Handlers {
	if opt.PageSize < 1 {
		opt.PageSize = 10
	}
	if opt.IdempotencyTTL <= 0 {
		opt.IdempotencyTTL = 24 * time.Hour
	}
	if opt.Heartbeat <= 0 {
		opt.Heartbeat = 25 * time.Second
	}
	return &Handlers{
		svc:       svc,
		db:        db,
		hub:       hub,
		pageSize:  opt.PageSize,
		idemTTL:   opt.IdempotencyTTL,
		heartbeat: opt.Heartbeat,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to the "X-User-ID" header (tests use
// it). Returns 0 when no identity is available.
func userID(c *gin.Context) int {
	if id := c.GetInt("userID"); id > 0 {
		return id
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			if id, err := strconv.Atoi(h); err == nil && id > 0 {
				return id
			}
		}
	}
	return 0
}

//
// Shared DTOs
//

// MessagesPage is the paginated history envelope. The field names follow the
// legacy wire contract consumed by existing clients.
type MessagesPage struct {
	Data        []services.MessageView `json:"data"`
	CurrentPage int                    `json:"current_page"`
	LastPage    int                    `json:"last_page"`
	PerPage     int                    `json:"per_page"`
	Total       int64                  `json:"total"`
}
