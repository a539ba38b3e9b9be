// README: Transporter status handlers: board view, self-service updates, heartbeats.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"porter/internal/http/middleware"
	"porter/internal/modules/roster"
)

type StatusHandler struct {
	roster *roster.Service
}

func NewStatusHandler(svc *roster.Service) *StatusHandler {
	return &StatusHandler{roster: svc}
}

func (h *StatusHandler) List(c *gin.Context) {
	records, err := h.roster.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		out = append(out, gin.H{
			"user_id":    r.UserID,
			"status":     r.Status,
			"updated_at": r.UpdatedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"transporters": out})
}

type setStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *StatusHandler) Set(c *gin.Context) {
	var req setStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid status payload")
		return
	}
	err := h.roster.SetStatus(c.Request.Context(), middleware.CallerID(c), roster.Status(req.Status))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": req.Status})
}

func (h *StatusHandler) Heartbeat(c *gin.Context) {
	if err := h.roster.Heartbeat(c.Request.Context(), middleware.CallerID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}
