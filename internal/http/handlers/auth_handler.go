// README: Login/logout handlers; the token travels in an HTTP cookie.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"porter/internal/modules/auth"
)

type AuthHandler struct {
	auth       *auth.Service
	cookieName string
	cookieTTL  int
}

func NewAuthHandler(svc *auth.Service, cookieName string, cookieTTLSeconds int) *AuthHandler {
	return &AuthHandler{auth: svc, cookieName: cookieName, cookieTTL: cookieTTLSeconds}
}

type loginReq struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid login payload")
		return
	}
	token, u, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.SetCookie(h.cookieName, token, h.cookieTTL, "/", "", false, true)
	writeJSON(c, http.StatusOK, gin.H{
		"user_id":      u.ID,
		"display_name": u.DisplayName,
		"role":         u.Role.String(),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookieName)
	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		writeServiceError(c, err)
		return
	}
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	writeJSON(c, http.StatusOK, gin.H{"status": "logged_out"})
}
