package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"room-status-backend/internal/auth"
)

const sessionCookie = "room_session"

// currentUser resolves the request's session cookie to an identity.
func (h *Handler) currentUser(c *gin.Context) (auth.Identity, bool) {
	tok, err := c.Cookie(sessionCookie)
	if err != nil || tok == "" {
		return auth.Identity{}, false
	}
	return h.sessions.Get(tok)
}

type postSessionRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
}

// PostSession handles POST /api/session: log in with a display name.
func (h *Handler) PostSession(c *gin.Context) {
	var req postSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "display_name is required"})
		return
	}

	tok, id := h.sessions.Login(req.DisplayName)
	c.SetCookie(sessionCookie, tok, int(h.sessions.TTL().Seconds()), "/", "", false, true)
	c.JSON(http.StatusCreated, id)
}

// GetSession handles GET /api/session: return the current identity.
func (h *Handler) GetSession(c *gin.Context) {
	id, ok := h.currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_logged_in"})
		return
	}
	c.JSON(http.StatusOK, id)
}

// DeleteSession handles DELETE /api/session: log out.
func (h *Handler) DeleteSession(c *gin.Context) {
	if tok, err := c.Cookie(sessionCookie); err == nil && tok != "" {
		h.sessions.Logout(tok)
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
