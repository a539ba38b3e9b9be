// README: Offline sync: replays queued client actions through the lifecycle engine.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"porter/internal/modules/request"
	"porter/internal/types"
)

type SyncHandler struct {
	requests *request.Service
}

func NewSyncHandler(svc *request.Service) *SyncHandler {
	return &SyncHandler{requests: svc}
}

type syncAction struct {
	Action    string `json:"action" binding:"required"` // advance | cancel | claim
	RequestID string `json:"request_id" binding:"required"`
	Status    string `json:"status"`
}

type syncReq struct {
	Actions []syncAction `json:"actions" binding:"required"`
}

// Replay applies each queued action in order. Conflicts and invalid
// transitions are reported per action, never retried; the client reconciles
// by refetching.
func (h *SyncHandler) Replay(c *gin.Context) {
	var req syncReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid sync payload")
		return
	}

	actor := callerActor(c)
	results := make([]gin.H, 0, len(req.Actions))
	for _, a := range req.Actions {
		var err error
		switch a.Action {
		case "advance":
			err = h.requests.Advance(c.Request.Context(), request.AdvanceCommand{
				RequestID: types.ID(a.RequestID),
				Actor:     actor,
				Target:    request.Status(a.Status),
			})
		case "cancel":
			err = h.requests.Cancel(c.Request.Context(), request.CancelCommand{
				RequestID: types.ID(a.RequestID),
				Actor:     actor,
			})
		case "claim":
			err = h.requests.Claim(c.Request.Context(), request.ClaimCommand{
				RequestID: types.ID(a.RequestID),
				Actor:     actor,
			})
		default:
			err = request.ErrValidation
		}

		result := gin.H{"request_id": a.RequestID, "action": a.Action, "ok": err == nil}
		if err != nil {
			result["error"] = err.Error()
		}
		results = append(results, result)
	}
	writeJSON(c, http.StatusOK, gin.H{"results": results})
}
