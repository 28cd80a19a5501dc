// User directory handler.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-direct-chat/internal/services"
)

// GetUsers handles GET /users: the recipient picker directory, every user
// except the caller as (id, name) pairs.
func (h *Handlers) GetUsers(c *gin.Context) {
	uid := userID(c)
	if uid <= 0 {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return
	}

	users, err := h.svc.ListOtherUsers(c.Request.Context(), uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	if users == nil {
		users = []services.UserView{}
	}
	ok(c, http.StatusOK, users)
}
