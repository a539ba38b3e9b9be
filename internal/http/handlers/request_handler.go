// README: Transport request handlers: create, list, advance, cancel, claim, assign, history.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"porter/internal/http/middleware"
	"porter/internal/modules/request"
	"porter/internal/types"
)

type RequestHandler struct {
	requests *request.Service
}

func NewRequestHandler(svc *request.Service) *RequestHandler {
	return &RequestHandler{requests: svc}
}

type createRequestReq struct {
	OriginFloor     string   `json:"origin_floor" binding:"required"`
	Room            int      `json:"room" binding:"required"`
	PatientInitials string   `json:"patient_initials"`
	Destination     string   `json:"destination" binding:"required"`
	Priority        string   `json:"priority"`
	SpecialNeeds    []string `json:"special_needs"`
	Notes           string   `json:"notes"`
}

func (h *RequestHandler) Create(c *gin.Context) {
	var req createRequestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	r, err := h.requests.Create(c.Request.Context(), request.CreateCommand{
		OriginFloor:     request.Floor(req.OriginFloor),
		Room:            req.Room,
		PatientInitials: req.PatientInitials,
		Destination:     req.Destination,
		Priority:        request.Priority(req.Priority),
		SpecialNeeds:    req.SpecialNeeds,
		Notes:           req.Notes,
		CreatedBy:       middleware.CallerID(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, requestView(r))
}

func (h *RequestHandler) List(c *gin.Context) {
	f := request.ListFilter{}
	switch {
	case c.Query("pending") == "true":
		f.PendingQueue = true
	case c.Query("active") == "true":
		f.ActiveOnly = true
	case c.Query("status") != "":
		f.Status = request.Status(c.Query("status"))
	case c.Query("mine") == "true":
		f.AssignedTo = middleware.CallerID(c)
	}
	list, err := h.requests.List(c.Request.Context(), f)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	views := make([]gin.H, 0, len(list))
	for _, r := range list {
		views = append(views, requestView(r))
	}
	writeJSON(c, http.StatusOK, gin.H{"requests": views})
}

func (h *RequestHandler) Get(c *gin.Context) {
	r, err := h.requests.Get(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, requestView(r))
}

type advanceReq struct {
	Status string `json:"status" binding:"required"`
}

// Update advances the request along the forward lifecycle path.
func (h *RequestHandler) Update(c *gin.Context) {
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	err := h.requests.Advance(c.Request.Context(), request.AdvanceCommand{
		RequestID: types.ID(c.Param("id")),
		Actor:     callerActor(c),
		Target:    request.Status(req.Status),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": req.Status})
}

func (h *RequestHandler) Cancel(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)
	err := h.requests.Cancel(c.Request.Context(), request.CancelCommand{
		RequestID: types.ID(c.Param("id")),
		Actor:     callerActor(c),
		Reason:    body.Reason,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": request.StatusCancelled})
}

func (h *RequestHandler) Claim(c *gin.Context) {
	err := h.requests.Claim(c.Request.Context(), request.ClaimCommand{
		RequestID: types.ID(c.Param("id")),
		Actor:     callerActor(c),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"claimed": true})
}

type assignReq struct {
	AssigneeID string `json:"assignee_id" binding:"required"`
}

func (h *RequestHandler) Assign(c *gin.Context) {
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	err := h.requests.Assign(c.Request.Context(), request.AssignCommand{
		RequestID:  types.ID(c.Param("id")),
		Actor:      callerActor(c),
		AssigneeID: types.ID(req.AssigneeID),
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"assigned_to": req.AssigneeID})
}

func (h *RequestHandler) History(c *gin.Context) {
	records, err := h.requests.History(c.Request.Context(), types.ID(c.Param("id")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	out := make([]gin.H, 0, len(records))
	for _, rec := range records {
		out = append(out, gin.H{
			"actor_id":    rec.ActorID,
			"from_status": rec.FromStatus,
			"to_status":   rec.ToStatus,
			"at":          rec.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"history": out})
}

func callerActor(c *gin.Context) request.Actor {
	return request.Actor{ID: middleware.CallerID(c), Role: middleware.CallerRole(c)}
}

func requestView(r *request.TransportRequest) gin.H {
	v := gin.H{
		"id":            r.ID,
		"origin_floor":  r.OriginFloor,
		"room":          r.Room,
		"destination":   r.Destination,
		"priority":      r.Priority,
		"special_needs": r.SpecialNeeds,
		"notes":         r.Notes,
		"status":        r.Status,
		"created_by":    r.CreatedBy,
		"created_at":    r.CreatedAt,
	}
	if r.PatientInitials != "" {
		v["patient_initials"] = r.PatientInitials
	}
	if r.AssignedTo != nil {
		v["assigned_to"] = *r.AssignedTo
	}
	return v
}
