// README: Dispatcher shift handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"porter/internal/http/middleware"
	"porter/internal/modules/shift"
	"porter/internal/types"
)

type ShiftHandler struct {
	shifts *shift.Service
}

func NewShiftHandler(svc *shift.Service) *ShiftHandler {
	return &ShiftHandler{shifts: svc}
}

func (h *ShiftHandler) ListActive(c *gin.Context) {
	sessions, err := h.shifts.ListActive(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"id":         s.ID,
			"user_id":    s.UserID,
			"is_primary": s.IsPrimary,
			"contact":    s.Contact,
			"started_at": s.StartedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"sessions": out})
}

type startShiftReq struct {
	IsPrimary bool   `json:"is_primary"`
	Contact   string `json:"contact"`
}

func (h *ShiftHandler) Start(c *gin.Context) {
	var req startShiftReq
	_ = c.ShouldBindJSON(&req)
	sess, err := h.shifts.Start(c.Request.Context(), shift.StartCommand{
		UserID:    middleware.CallerID(c),
		IsPrimary: req.IsPrimary,
		Contact:   req.Contact,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, gin.H{"id": sess.ID, "is_primary": sess.IsPrimary})
}

func (h *ShiftHandler) End(c *gin.Context) {
	err := h.shifts.End(c.Request.Context(), types.ID(c.Param("id")),
		middleware.CallerID(c), middleware.CallerRole(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"ended": true})
}
