// Message HTTP handlers.
//
// This file exposes the REST endpoints for the two-party message flow:
//   - POST /store-message             (validate, encrypt, persist, broadcast)
//   - GET  /get-messages/:recipientId (paginated decrypted history)
//   - POST /get-messages              (same, recipient in the body)
//   - POST /status-messages           (mark a direction of the pair read)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// send exists for (user, recipient, key), the handler returns that recorded
// message and sets `Idempotency-Replayed: true` instead of storing a duplicate.
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-direct-chat/internal/channel"
	"github.com/tbourn/go-direct-chat/internal/http/middleware"
	"github.com/tbourn/go-direct-chat/internal/repo"
	"github.com/tbourn/go-direct-chat/internal/services"
	"github.com/tbourn/go-direct-chat/internal/utils"
)

//
// DTOs
//

// StoreMessageRequest is the JSON payload for sending a message.
type StoreMessageRequest struct {
	// Message is the plaintext body. It must be non-empty after trimming.
	Message string `json:"message"`
	// RecipientID identifies the receiving user.
	RecipientID int `json:"recipient_id"`
}

// StoreMessageResponse is the JSON envelope for a stored message.
type StoreMessageResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	SenderName string `json:"sender_name"`
	ID         uint   `json:"id"`
}

// GetMessagesRequest is the JSON payload for the POST history variant.
type GetMessagesRequest struct {
	RecipientID int `json:"recipient_id"`
	Page        int `json:"page"`
}

// StatusMessagesRequest asks for the sender→recipient direction to be marked read.
type StatusMessagesRequest struct {
	SenderID    int `json:"sender_id"`
	RecipientID int `json:"recipient_id"`
}

//
// Handlers
//

// StoreMessage handles POST /store-message.
//
// Responses:
//   - 200 {success:true, message, sender_name, id} on success
//   - 200 {success:false} when the caller messages themselves (legacy contract)
//   - 422 with a length-specific message when the body exceeds the cap,
//     or a generic validation message otherwise
//   - 500 on persistence failure
func (h *Handlers) StoreMessage(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid <= 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req StoreMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "message and recipient_id are required")
		return
	}
	body := strings.TrimSpace(req.Message)

	// Idempotency (replay path): read the validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && h.db != nil {
		if rec, err := repo.GetIdempotency(ctx, h.db, uid, req.RecipientID, idemKey, time.Now().UTC()); err == nil {
			if prev, err2 := h.svc.MessageByID(ctx, rec.MessageID); err2 == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, http.StatusOK, StoreMessageResponse{
					Success:    true,
					Message:    prev.Message,
					SenderName: prev.SenderName,
					ID:         prev.ID,
				})
				return
			}
		}
	}

	v, err := h.svc.Send(ctx, uid, req.RecipientID, body)
	if err != nil {
		switch err {
		case services.ErrSelfMessage:
			// Legacy contract: not an error envelope, a soft failure flag.
			ok(c, http.StatusOK, gin.H{"success": false})
		case services.ErrMessageTooLong:
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "Message cannot exceed 500 characters.")
		case services.ErrEmptyMessage:
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "Message is required.")
		case services.ErrInvalidRecipient:
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "Recipient is required.")
		case services.ErrUserNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "user not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, err.Error())
		}
		return
	}

	// Idempotency (store path): best effort, duplicates are fine.
	if idemKey != "" && h.db != nil {
		_, _ = repo.CreateIdempotency(ctx, h.db, uid, req.RecipientID, idemKey, v.ID, http.StatusOK, h.idemTTL)
	}

	ok(c, http.StatusOK, StoreMessageResponse{
		Success:    true,
		Message:    v.Message,
		SenderName: v.SenderName,
		ID:         v.ID,
	})
}

// GetMessages handles GET /get-messages/:recipientId. The page number comes
// from the "page" query parameter and defaults to 1.
func (h *Handlers) GetMessages(c *gin.Context) {
	rid := utils.AtoiDefault(c.Param("recipientId"), 0)
	page := utils.AtoiDefault(c.Query("page"), 1)
	h.renderHistory(c, rid, page)
}

// PostMessages handles POST /get-messages, the body-parameter variant kept
// for clients that fetch history with a POST.
func (h *Handlers) PostMessages(c *gin.Context) {
	var req GetMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "recipient_id is required")
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	h.renderHistory(c, req.RecipientID, req.Page)
}

// renderHistory serves one page of the caller's conversation with rid,
// with an ETag pre-check so unchanged conversations can 304.
func (h *Handlers) renderHistory(c *gin.Context, rid, page int) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid <= 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	if rid <= 0 {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "Recipient is required.")
		return
	}

	// ETag pre-check (best effort). The tag covers count and latest update,
	// so a read sweep or a new message invalidates it.
	if h.db != nil {
		count, maxTS, err := repo.ConversationStats(ctx, h.db, uid, rid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"%s:%d:%d:%d"`, channel.Name(uid, rid), count, ts, page)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	views, total, err := h.svc.History(ctx, uid, rid, page, h.pageSize)
	if err != nil {
		switch err {
		case services.ErrInvalidRecipient:
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "Recipient is required.")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeHistoryFailed, err.Error())
		}
		return
	}
	if views == nil {
		views = []services.MessageView{}
	}

	ok(c, http.StatusOK, MessagesPage{
		Data:        views,
		CurrentPage: page,
		LastPage:    utils.LastPage(total, h.pageSize),
		PerPage:     h.pageSize,
		Total:       total,
	})
}

// StatusMessages handles POST /status-messages: flip the unread
// sender→recipient messages to read. The caller must be the receiving side;
// marking one's own sent messages returns {success:false}.
func (h *Handlers) StatusMessages(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid <= 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	var req StatusMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "sender_id and recipient_id are required")
		return
	}

	err := h.svc.MarkRead(ctx, uid, req.SenderID, req.RecipientID)
	if err != nil {
		switch err {
		case services.ErrSelfMark:
			ok(c, http.StatusOK, gin.H{"success": false})
		case services.ErrInvalidSender, services.ErrInvalidRecipient:
			fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "sender_id and recipient_id are required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeMarkFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, gin.H{
		"success":      true,
		"message":      "Messages marked as read.",
		"sender_id":    req.SenderID,
		"recipient_id": req.RecipientID,
	})
}
