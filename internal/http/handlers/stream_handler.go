// Live event stream handlers (SSE).
//
// Two long-lived endpoints expose the broadcast hub over Server-Sent Events:
//   - GET /chat-stream?recipient_id=N  (the caller's private pair channel)
//   - GET /presence-stream             (the global users-online channel)
//
// Delivery is best effort with per-connection ordering; a client that missed
// events while disconnected catches up through the history endpoint. Periodic
// ping events keep proxies from reaping idle connections.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-direct-chat/internal/broadcast"
	"github.com/tbourn/go-direct-chat/internal/channel"
	"github.com/tbourn/go-direct-chat/internal/http/middleware"
	"github.com/tbourn/go-direct-chat/internal/repo"
	"github.com/tbourn/go-direct-chat/internal/utils"
)

// ChatStream handles GET /chat-stream. It subscribes the caller to the
// private channel of the (caller, recipient) pair and relays hub events until
// the client disconnects.
//
// Responses: 403 when the caller is not a member of the requested pair
// (including self-pairs), 422 when recipient_id is missing.
func (h *Handlers) ChatStream(c *gin.Context) {
	uid := userID(c)
	if uid <= 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	rid := utils.AtoiDefault(c.Query("recipient_id"), 0)
	if rid <= 0 {
		fail(c, http.StatusUnprocessableEntity, ErrCodeValidation, "recipient_id is required")
		return
	}
	if rid == uid {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot stream a channel with yourself")
		return
	}

	name := channel.Name(uid, rid)
	if !channel.Authorize(name, uid) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not a member of this channel")
		return
	}

	sub := h.hub.Subscribe(name, h.member(c, uid))
	defer sub.Close()
	h.stream(c, sub)
}

// PresenceStream handles GET /presence-stream: the global presence channel.
// Every authenticated user may join; peers receive joined/left events with
// the member's (id, name).
func (h *Handlers) PresenceStream(c *gin.Context) {
	uid := userID(c)
	if uid <= 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}
	if !channel.Authorize(channel.Presence, uid) {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "not allowed")
		return
	}

	sub := h.hub.Subscribe(channel.Presence, h.member(c, uid))
	defer sub.Close()
	h.stream(c, sub)
}

// member builds the broadcast identity for uid, resolving the display name
// when the directory has it.
func (h *Handlers) member(c *gin.Context, uid int) broadcast.Member {
	m := broadcast.Member{ID: uid}
	if h.db != nil {
		if u, err := repo.GetUser(c.Request.Context(), h.db, uid); err == nil {
			m.Name = u.Name
		}
	}
	return m
}

// stream relays subscription events to the client as SSE frames until the
// subscription closes or the client goes away.
func (h *Handlers) stream(c *gin.Context, sub *broadcast.Subscription) {
	hd := c.Writer.Header()
	hd.Set("Content-Type", "text/event-stream")
	hd.Set("Cache-Control", "no-cache")
	hd.Set("Connection", "keep-alive")
	hd.Set("X-Accel-Buffering", "no") // disable proxy buffering
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	lg := middleware.LoggerFrom(c)
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			lg.Debug().Msg("stream client disconnected")
			return
		case e, open := <-sub.C:
			if !open {
				return
			}
			c.SSEvent(e.Name, e.Data)
			c.Writer.Flush()
		case t := <-ticker.C:
			c.SSEvent("ping", t.Unix())
			c.Writer.Flush()
		}
	}
}
