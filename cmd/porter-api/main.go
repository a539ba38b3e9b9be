// README: Entry point; loads config, wires services, starts HTTP server and background sweeps.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"porter/internal/config"
	httptransport "porter/internal/http"
	"porter/internal/infra"
	"porter/internal/logging"
	"porter/internal/modules/alerts"
	"porter/internal/modules/assign"
	"porter/internal/modules/auth"
	"porter/internal/modules/report"
	"porter/internal/modules/request"
	"porter/internal/modules/roster"
	"porter/internal/modules/settings"
	"porter/internal/modules/shift"
	"porter/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	hub := realtime.NewHub()

	rosterStore := roster.NewStore(dbPool, redisClient, cfg.Sweep.HeartbeatTTL())
	rosterSvc := roster.NewService(rosterStore, hub, logger)

	requestStore := request.NewPostgresStore(dbPool)
	requestSvc := request.NewService(requestStore, hub, logger, cfg.ClaimDirectAccept)

	authStore := auth.NewPostgresStore(dbPool)
	authSvc := auth.NewService(authStore, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)

	settingsStore := settings.NewPostgresStore(dbPool)
	settingsSvc := settings.NewService(settingsStore, hub)

	shiftStore := shift.NewPostgresStore(dbPool)
	shiftSvc := shift.NewService(shiftStore)

	reportStore := report.NewPostgresStore(dbPool)
	reportSvc := report.NewService(reportStore)

	scanner := alerts.NewScanner(
		requestSvc, rosterSvc, alerts.NewKVSettings(settingsSvc),
		hub, logger, cfg.Sweep.AlertInterval(),
	)
	matcher := assign.NewMatcher(requestSvc, requestSvc, rosterSvc, logger, cfg.Sweep.AssignInterval())

	go scanner.Run(ctx)
	go matcher.Run(ctx)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Auth:       authSvc,
		Requests:   requestSvc,
		Roster:     rosterSvc,
		Shifts:     shiftSvc,
		Settings:   settingsSvc,
		Reports:    reportSvc,
		Hub:        hub,
		Log:        logger,
		CookieName: cfg.Auth.CookieName,
		CookieTTL:  cfg.Auth.TokenTTLHours * 3600,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("porter-api listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("http server", zap.Error(err))
	}
}
