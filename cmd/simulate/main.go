package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/config"
	"github.com/hackgods/autodetail-scheduling/internal/db"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

type SimConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	BookRatio   float64
	Days        int
	PostgresDSN string
	Location    *time.Location
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeConflict
	outcomeRejected
	outcomeError
)

func classify(status int) outcome {
	switch {
	case status >= 200 && status < 300:
		return outcomeSuccess
	case status == http.StatusConflict:
		return outcomeConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, status == http.StatusTooManyRequests:
		return outcomeRejected
	default:
		return outcomeError
	}
}

func (om *OperationMetrics) Record(latency time.Duration, o outcome) {
	atomic.AddInt64(&om.Total, 1)
	switch o {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case outcomeRejected:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, low, high, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	low = latencies[0]
	high = latencies[len(latencies)-1]
	p50 = latencies[min(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, low, high, p50, p95
}

type Metrics struct {
	Booking OperationMetrics
	Slots   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	metrics Metrics
	logger  *logging.Logger
}

func main() {
	logger := logging.New(getEnv("LOG_LEVEL", "info")).Component("simulate")

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger.Info("simulator starting",
		"duration", cfg.Duration, "workers", cfg.Workers, "book_ratio", cfg.BookRatio, "days", cfg.Days)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}

	sim.Run()
	sim.PrintReport()

	if cfg.PostgresDSN != "" {
		if err := checkOverlaps(cfg.PostgresDSN, logger); err != nil {
			logger.Error("overlap check failed", "error", err)
			os.Exit(1)
		}
	}
}

func loadConfig() (SimConfig, error) {
	base, err := config.Load()
	if err != nil {
		return SimConfig{}, fmt.Errorf("failed to load base config: %w", err)
	}

	cfg := SimConfig{
		APIBaseURL:  getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:    getDuration("SIM_DURATION", 30*time.Second),
		Workers:     getInt("SIM_WORKERS", 10),
		BookRatio:   getFloat("SIM_BOOK_RATIO", 0.6),
		Days:        getInt("SIM_DAYS", 7),
		PostgresDSN: base.PostgresDSN,
		Location:    base.Location,
	}

	if cfg.Workers <= 0 {
		return cfg, fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return cfg, fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Days <= 0 {
		return cfg, fmt.Errorf("SIM_DAYS must be > 0")
	}
	return cfg, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := range s.config.Workers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	catalog := availability.Catalog()

	for ctx.Err() == nil {
		// Everyone competes for the same handful of days.
		date := time.Now().In(s.config.Location).AddDate(0, 0, 2+rng.Intn(s.config.Days)).Format("2006-01-02")
		service := catalog[rng.Intn(len(catalog))].Kind

		if rng.Float64() < s.config.BookRatio {
			s.doBooking(ctx, rng, date, service)
		} else {
			s.doSlots(ctx, date, service)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand, date string, service availability.ServiceKind) {
	body, _ := json.Marshal(map[string]string{
		"name":      gofakeit.Name(),
		"phone":     gofakeit.Phone(),
		"email":     gofakeit.Email(),
		"date":      date,
		"startTime": fmt.Sprintf("%02d:00", 9+rng.Intn(10)),
		"service":   string(service),
	})

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/api/calendar/events", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.Booking.Record(latency, outcomeError)
		}
		return
	}
	_ = resp.Body.Close()
	s.metrics.Booking.Record(latency, classify(resp.StatusCode))
}

func (s *Simulator) doSlots(ctx context.Context, date string, service availability.ServiceKind) {
	url := fmt.Sprintf("%s/api/calendar/available-slots?date=%s&service=%s", s.config.APIBaseURL, date, service)
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.metrics.Slots.Record(latency, outcomeError)
		}
		return
	}
	_ = resp.Body.Close()
	s.metrics.Slots.Record(latency, classify(resp.StatusCode))
}

// checkOverlaps fails if two confirmed appointments overlap.
func checkOverlaps(dsn string, logger *logging.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	var overlaps int
	err = pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.id < b.id
		 AND a.status = 'confirmed' AND b.status = 'confirmed'
		 AND a.start_time < b.end_time AND b.start_time < a.end_time
	`).Scan(&overlaps)
	if err != nil {
		return fmt.Errorf("count overlaps: %w", err)
	}
	if overlaps > 0 {
		return fmt.Errorf("%d overlapping confirmed appointments", overlaps)
	}
	logger.Info("no overlapping confirmed appointments")
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Available slots", &s.metrics.Slots)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	rejected := atomic.LoadInt64(&om.Rejected)
	failed := atomic.LoadInt64(&om.Error)

	avg, low, high, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict))
	}
	if rejected > 0 {
		fmt.Printf("  Rejected: %d (%.1f%%)\n", rejected, pct(rejected))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), low.Round(time.Millisecond), high.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("invalid duration, using default", "key", key, "value", v)
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
