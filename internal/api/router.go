package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

type RouterConfig struct {
	Service    BookingService
	SMS        SMSTester
	GoogleAuth *GoogleAuthHandler
	Health     *HealthHandler
	Logger     *logging.Logger

	AdminJWTSecret string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	h := NewHandler(cfg.Service, cfg.SMS, cfg.Logger)

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	admin := AdminJWT(cfg.AdminJWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Get("/services", h.ListServices)
		r.Get("/calendar/available-slots", h.AvailableSlots)
		r.With(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)).Post("/calendar/events", h.CreateBooking)

		r.With(admin).Get("/calendar/events", h.ListCalendarEvents)
		r.With(admin).Post("/sms/test", h.SendTestSMS)
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Get("/appointments", h.ListAppointments)
			r.Post("/appointments/{id}/cancel", h.CancelAppointment)
		})
	})

	if cfg.GoogleAuth != nil {
		r.With(admin).Get("/auth/google", cfg.GoogleAuth.Connect)
		r.Get("/auth/google/callback", cfg.GoogleAuth.Callback)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Request-ID"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
	)
	return cors(r)
}
