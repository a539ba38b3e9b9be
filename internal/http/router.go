// README: HTTP router registration; role gates applied per route group.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"porter/internal/http/handlers"
	"porter/internal/http/middleware"
	"porter/internal/modules/auth"
	"porter/internal/modules/report"
	"porter/internal/modules/request"
	"porter/internal/modules/roster"
	"porter/internal/modules/settings"
	"porter/internal/modules/shift"
	"porter/internal/realtime"
	"porter/internal/types"
)

type RouterDeps struct {
	Auth       *auth.Service
	Requests   *request.Service
	Roster     *roster.Service
	Shifts     *shift.Service
	Settings   *settings.Service
	Reports    *report.Service
	Hub        *realtime.Hub
	Log        *zap.Logger
	CookieName string
	CookieTTL  int // seconds
}

func NewRouter(deps RouterDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log), middleware.Logging(deps.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	authHandler := handlers.NewAuthHandler(deps.Auth, deps.CookieName, deps.CookieTTL)
	r.POST("/api/auth/login", authHandler.Login)

	api := r.Group("/api", middleware.Auth(deps.Auth, deps.CookieName))
	api.POST("/auth/logout", authHandler.Logout)

	requestHandler := handlers.NewRequestHandler(deps.Requests)
	api.GET("/requests", requestHandler.List)
	api.POST("/requests", requestHandler.Create)
	api.GET("/requests/:id", requestHandler.Get)
	api.PUT("/requests/:id", requestHandler.Update)
	api.POST("/requests/:id/cancel", middleware.RequireRole(types.RoleDispatcher), requestHandler.Cancel)
	api.POST("/requests/:id/claim", requestHandler.Claim)
	api.POST("/requests/:id/assign", middleware.RequireRole(types.RoleDispatcher), requestHandler.Assign)
	api.GET("/requests/:id/history", requestHandler.History)

	statusHandler := handlers.NewStatusHandler(deps.Roster)
	api.GET("/status", statusHandler.List)
	api.PUT("/status", statusHandler.Set)
	api.POST("/status/heartbeat", statusHandler.Heartbeat)

	shiftHandler := handlers.NewShiftHandler(deps.Shifts)
	api.GET("/shifts", shiftHandler.ListActive)
	api.POST("/shifts", middleware.RequireRole(types.RoleDispatcher), shiftHandler.Start)
	api.POST("/shifts/:id/end", middleware.RequireRole(types.RoleDispatcher), shiftHandler.End)

	configHandler := handlers.NewConfigHandler(deps.Settings)
	api.GET("/config", middleware.RequireRole(types.RoleSupervisor), configHandler.List)
	api.GET("/config/:key", middleware.RequireRole(types.RoleSupervisor), configHandler.Get)
	api.PUT("/config/:key", middleware.RequireRole(types.RoleManager), configHandler.Set)

	reportHandler := handlers.NewReportHandler(deps.Reports)
	api.GET("/reports/summary", middleware.RequireRole(types.RoleDispatcher), reportHandler.Summary)
	api.GET("/reports/export", middleware.RequireRole(types.RoleDispatcher), reportHandler.Export)

	syncHandler := handlers.NewSyncHandler(deps.Requests)
	api.POST("/sync", syncHandler.Replay)

	api.GET("/events", realtime.SSEHandler(deps.Hub))

	return r
}
