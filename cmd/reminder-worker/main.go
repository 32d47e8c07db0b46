package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hackgods/autodetail-scheduling/internal/app/bootstrap"
	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/config"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).Component("reminder-worker")
	logger.Info("reminder-worker starting up", "env", cfg.Env, "schedule", cfg.ReminderSchedule, "window", cfg.ReminderWindow)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap.New(rootCtx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	c := cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(cfg.ReminderSchedule, func() { runOnce(rootCtx, rt.Service, cfg.ReminderWindow, logger) }); err != nil {
		logger.Error("invalid REMINDER_SCHEDULE", "schedule", cfg.ReminderSchedule, "error", err)
		os.Exit(1)
	}

	// Run once at startup
	runOnce(rootCtx, rt.Service, cfg.ReminderWindow, logger)

	c.Start()
	<-rootCtx.Done()
	logger.Info("shutdown signal received, stopping reminder worker")

	// Wait for a run in progress to finish.
	<-c.Stop().Done()
}

func runOnce(ctx context.Context, svc *appointment.Service, window time.Duration, logger *logging.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()
	sent, err := svc.SendReminders(runCtx, window)
	if err != nil {
		logger.Error("reminder run error", "error", err)
		return
	}
	logger.Info("reminder run complete", "sent", sent, "duration", time.Since(start))
}
