// Package bootstrap wires the booking stack from configuration so the API
// server, the reminder worker and the seed command share one assembly.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/calendar"
	"github.com/hackgods/autodetail-scheduling/internal/config"
	"github.com/hackgods/autodetail-scheduling/internal/db"
	"github.com/hackgods/autodetail-scheduling/internal/notify"
	"github.com/hackgods/autodetail-scheduling/internal/observability/metrics"
	redisclient "github.com/hackgods/autodetail-scheduling/internal/redis"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

// Runtime holds the long lived dependencies of a process.
type Runtime struct {
	Config   config.Config
	Logger   *logging.Logger
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.BookingMetrics

	// Credentials is nil when Google OAuth is not configured.
	Credentials *calendar.Credentials
	States      *calendar.RedisStateStore
	Notifier    *notify.Notifier
	Service     *appointment.Service
}

// New connects Postgres and Redis and builds the booking service.
func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}

	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		return nil, fmt.Errorf("postgres connection error: %w", err)
	}
	logger.Info("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis connection error: %w", err)
	}
	logger.Info("connected to Redis")

	rt := &Runtime{
		Config:   cfg,
		Logger:   logger,
		Pool:     pool,
		Redis:    rdb,
		Registry: NewRegistry(),
	}
	rt.Metrics = metrics.NewBookingMetrics(rt.Registry)
	rt.States = calendar.NewRedisStateStore(rdb, 10*time.Minute)
	if cfg.GoogleConfigured() {
		oauthCfg := calendar.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)
		rt.Credentials = calendar.NewCredentials(oauthCfg, calendar.NewRedisTokenStore(rdb))
	}

	repo := appointment.NewPgRepository(pool)
	email, sms := BuildSenders(cfg, logger)
	rt.Notifier = notify.NewNotifier(email, sms, notify.Options{
		Business: cfg.BusinessName,
		Location: cfg.Location,
		Metrics:  rt.Metrics,
		Logger:   logger.Component("notify"),
	})

	rt.Service, err = BuildService(cfg, ServiceParts{
		Repo:        repo,
		Locker:      redisclient.NewRedisDayLocker(rdb, cfg.LockTTL),
		Credentials: rt.Credentials,
		Notifier:    rt.Notifier,
		Metrics:     rt.Metrics,
		Logger:      logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	return rt, nil
}

// Close releases the database and Redis connections.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		if err := rt.Redis.Close(); err != nil {
			rt.Logger.Warn("error closing redis", "error", err)
		}
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ServiceParts are the collaborators BuildService does not derive from config.
type ServiceParts struct {
	Repo        appointment.Repository
	Locker      redisclient.Locker
	Credentials *calendar.Credentials
	Notifier    appointment.Notifier
	Metrics     *metrics.BookingMetrics
	Logger      *logging.Logger
}

// BuildService assembles the booking service. Without Google credentials the
// appointments table is the calendar.
func BuildService(cfg config.Config, parts ServiceParts) (*appointment.Service, error) {
	if parts.Logger == nil {
		parts.Logger = logging.Default()
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("business hours: %w", err)
	}
	generator, err := availability.NewGenerator(policy, cfg.SlotGranularity)
	if err != nil {
		return nil, fmt.Errorf("slot generator: %w", err)
	}

	return appointment.NewService(appointment.Deps{
		Repo:          parts.Repo,
		Locker:        parts.Locker,
		Calendar:      BuildCalendar(cfg, parts.Credentials, parts.Repo, parts.Metrics, parts.Logger),
		Notifier:      parts.Notifier,
		Policy:        policy,
		Generator:     generator,
		Validator:     availability.NewValidator(policy, cfg.LeadTime),
		Metrics:       parts.Metrics,
		Logger:        parts.Logger.Component("appointment"),
		NotifyTimeout: cfg.NotifyTimeout,
	}), nil
}

func BuildCalendar(cfg config.Config, creds *calendar.Credentials, repo appointment.Repository, m *metrics.BookingMetrics, logger *logging.Logger) appointment.Calendar {
	if logger == nil {
		logger = logging.Default()
	}
	if creds == nil {
		logger.Warn("google calendar not configured, using the appointments table as the calendar")
		return appointment.NewLocalCalendar(repo, cfg.Location)
	}
	return calendar.NewGoogle(creds, cfg.GoogleCalendarID, cfg.Location, logger.Component("calendar"), calendar.WithMetrics(m))
}

// BuildSenders picks SendGrid and Twilio when configured and logging stubs otherwise.
func BuildSenders(cfg config.Config, logger *logging.Logger) (notify.EmailSender, notify.SMSSender) {
	var email notify.EmailSender = notify.NewStubEmailSender(logger)
	if cfg.SendGridConfigured() {
		email = notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	} else {
		logger.Warn("sendgrid not configured, emails will only be logged")
	}

	var sms notify.SMSSender = notify.NewStubSMSSender(logger)
	if cfg.TwilioConfigured() {
		sms = notify.NewTwilioSender(notify.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			FromNumber: cfg.TwilioFromNumber,
		}, logger)
	} else {
		logger.Warn("twilio not configured, sms will only be logged")
	}

	return email, sms
}
