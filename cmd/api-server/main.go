package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/autodetail-scheduling/internal/api"
	"github.com/hackgods/autodetail-scheduling/internal/app/bootstrap"
	"github.com/hackgods/autodetail-scheduling/internal/config"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("api-server starting up", "env", cfg.Env, "http_port", cfg.HTTPPort, "version", version)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	var connector api.Connector
	if rt.Credentials != nil {
		connector = rt.Credentials
	}
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set, admin endpoints are disabled")
	}

	router := api.NewRouter(api.RouterConfig{
		Service:    rt.Service,
		SMS:        rt.Notifier,
		GoogleAuth: api.NewGoogleAuthHandler(connector, rt.States, cfg.FrontendURL, logger.Component("oauth")),
		Health: api.NewHealthHandler(
			rt.Pool,
			api.PingFunc(func(ctx context.Context) error { return rt.Redis.Ping(ctx).Err() }),
			cfg.Env, version,
		),
		Logger:         logger,
		AdminJWTSecret: cfg.AdminJWTSecret,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		Gatherer:       rt.Registry,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	if err := rt.Service.Wait(shutdownCtx); err != nil {
		logger.Warn("notifications still in flight at shutdown", "error", err)
	}
}
