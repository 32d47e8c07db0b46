package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/autodetail-scheduling/internal/app/bootstrap"
	"github.com/hackgods/autodetail-scheduling/internal/appointment"
	"github.com/hackgods/autodetail-scheduling/internal/availability"
	"github.com/hackgods/autodetail-scheduling/internal/config"
	redisclient "github.com/hackgods/autodetail-scheduling/internal/redis"
	"github.com/hackgods/autodetail-scheduling/pkg/logging"
)

// seed books fake customers into free slots over the coming days. It always
// uses the appointments table as the calendar and sends no notifications.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel).Component("seed")
	logger.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	rt, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	svc, err := bootstrap.BuildService(cfg, bootstrap.ServiceParts{
		Repo:   appointment.NewPgRepository(rt.Pool),
		Locker: redisclient.NewRedisDayLocker(rt.Redis, cfg.LockTTL),
		Logger: logging.Discard(),
	})
	if err != nil {
		logger.Error("build service", "error", err)
		os.Exit(1)
	}

	days := getInt("SEED_DAYS", 14)
	perDay := getInt("SEED_PER_DAY", 2)

	booked, err := seedAppointments(ctx, svc, cfg.Location, days, perDay, logger)
	if err != nil {
		logger.Error("seed appointments", "error", err, "booked", booked)
		os.Exit(1)
	}
	logger.Info("seed complete", "booked", booked)
}

func seedAppointments(ctx context.Context, svc *appointment.Service, loc *time.Location, days, perDay int, logger *logging.Logger) (int, error) {
	catalog := availability.Catalog()
	today := time.Now().In(loc)
	booked := 0

	// Day 0 and 1 are inside the lead time.
	for offset := 2; offset < days+2; offset++ {
		date := time.Date(today.Year(), today.Month(), today.Day()+offset, 0, 0, 0, 0, loc)

		for range perDay {
			service := catalog[gofakeit.Number(0, len(catalog)-1)]
			slots, err := svc.AvailableSlots(ctx, date, service.Kind)
			if err != nil {
				return booked, err
			}
			if len(slots) == 0 {
				break
			}
			slot := slots[gofakeit.Number(0, len(slots)-1)]

			_, err = svc.Book(ctx, availability.Request{
				CustomerName:  gofakeit.Name(),
				CustomerPhone: gofakeit.Phone(),
				CustomerEmail: gofakeit.Email(),
				Date:          date,
				Service:       service.Kind,
				Start:         slot.Start,
			})
			if errors.Is(err, availability.ErrSlotUnavailable) || errors.Is(err, appointment.ErrDayBeingBooked) {
				continue
			}
			if err != nil {
				return booked, err
			}
			booked++
		}
		logger.Info("day seeded", "date", date.Format("2006-01-02"), "total", booked)
	}
	return booked, nil
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
