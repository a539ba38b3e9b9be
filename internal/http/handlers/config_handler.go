// README: Persisted config handlers; reads supervisor+, writes manager only (route-gated).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"porter/internal/http/middleware"
	"porter/internal/modules/settings"
)

type ConfigHandler struct {
	settings *settings.Service
}

func NewConfigHandler(svc *settings.Service) *ConfigHandler {
	return &ConfigHandler{settings: svc}
}

func (h *ConfigHandler) List(c *gin.Context) {
	entries, err := h.settings.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		out = append(out, gin.H{
			"key":        e.Key,
			"value":      e.Value,
			"updated_at": e.UpdatedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"config": out})
}

func (h *ConfigHandler) Get(c *gin.Context) {
	value, err := h.settings.Get(c.Request.Context(), c.Param("key"))
	if errors.Is(err, settings.ErrNotFound) {
		writeError(c, http.StatusNotFound, "config key not found")
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"key": c.Param("key"), "value": value})
}

type setConfigReq struct {
	Value string `json:"value" binding:"required"`
}

func (h *ConfigHandler) Set(c *gin.Context) {
	var req setConfigReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid config payload")
		return
	}
	if err := h.settings.Set(c.Request.Context(), c.Param("key"), req.Value, middleware.CallerID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"key": c.Param("key")})
}
