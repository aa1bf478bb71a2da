/*
scheduler.go - Automated holiday registry maintenance

PURPOSE:
  Periodically makes sure the holiday registry covers the current year.
  When no holiday of the current year exists, the default Brazilian
  holidays for that year are seeded. A registry that already has any
  holiday for the year is left alone, so deletions by an admin stick.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Checks immediately on start, then on every tick
  - Acts as the SystemActor, so seeding shows up in the audit trail

USAGE:
  s := NewHolidayScheduler(svc, logger)
  s.Start()
  // ... later
  s.Stop()

SEE ALSO:
  - handlers.go: SeedHolidays endpoint (manual seeding)
  - calendar/defaults.go: DefaultHolidays
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opsdesk/vacation-ledger/ledger"
)

// SystemActor is the actor used for automated mutations.
var SystemActor = ledger.Actor{ID: "system", Name: "scheduler", Role: ledger.RoleAdmin}

// HolidayScheduler seeds default holidays when a new year starts.
type HolidayScheduler struct {
	Service       *ledger.Service
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewHolidayScheduler(svc *ledger.Service, logger *zap.Logger) *HolidayScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayScheduler{
		Service:       svc,
		Logger:        logger.Named("scheduler"),
		CheckInterval: time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler. Calling Start twice is a no-op.
func (hs *HolidayScheduler) Start() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if !hs.Enabled {
		hs.Logger.Info("holiday scheduler disabled")
		return
	}
	if hs.ticker != nil {
		return
	}

	hs.ticker = time.NewTicker(hs.CheckInterval)
	hs.stop = make(chan struct{})
	hs.wg.Add(1)
	go hs.run()

	hs.Logger.Info("holiday scheduler started", zap.Duration("interval", hs.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (hs *HolidayScheduler) Stop() {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if hs.ticker == nil {
		return
	}
	hs.ticker.Stop()
	close(hs.stop)
	hs.wg.Wait()
	hs.ticker = nil
	hs.Logger.Info("holiday scheduler stopped")
}

func (hs *HolidayScheduler) run() {
	defer hs.wg.Done()

	hs.CheckOnce(context.Background())
	for {
		select {
		case <-hs.ticker.C:
			hs.CheckOnce(context.Background())
		case <-hs.stop:
			return
		}
	}
}

// CheckOnce seeds the current year's defaults if the registry has no
// holiday in that year. It reports how many holidays were seeded.
func (hs *HolidayScheduler) CheckOnce(ctx context.Context) int {
	year := hs.Service.Today().Year()

	holidays, err := hs.Service.ListHolidays(ctx)
	if err != nil {
		hs.Logger.Error("failed to list holidays", zap.Error(err))
		return 0
	}
	for _, h := range holidays {
		if h.Date.Year() == year {
			return 0
		}
	}

	n, err := hs.Service.SeedDefaultHolidays(ctx, SystemActor, year)
	if err != nil {
		hs.Logger.Error("failed to seed holidays", zap.Int("year", year), zap.Error(err))
		return 0
	}
	hs.Logger.Info("seeded default holidays", zap.Int("year", year), zap.Int("count", n))
	return n
}
