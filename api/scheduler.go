/*
scheduler.go - Automated journal maintenance scheduler

PURPOSE:
  Periodically sweeps the recent past and the forecast horizon for stale
  periods (missing cache entries or an empty persisted journal) and
  regenerates them. Covers the day the process stays up across a period
  boundary: the new current period gains its journal without any user
  action.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Delegates the actual staleness check to the engine's sweep
  - Skips fresh periods, so an idle sweep is cheap

CONFIGURATION:
  - CheckInterval: How often to sweep (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMaintenanceScheduler(engine)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RegenerateAll endpoint (manual repair)
  - engine/propagation.go: staleness detection
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/ledger-engine/engine"
)

// MaintenanceScheduler keeps journals fresh across period boundaries.
type MaintenanceScheduler struct {
	Engine        *engine.Engine
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMaintenanceScheduler creates a new scheduler.
func NewMaintenanceScheduler(eng *engine.Engine) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		Engine:        eng,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler. Starting a running scheduler is a no-op.
func (ms *MaintenanceScheduler) Start() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if ms.ticker != nil {
		return
	}

	ms.ticker = time.NewTicker(ms.CheckInterval)
	ms.stop = make(chan bool)
	ms.wg.Add(1)

	go ms.run(ms.ticker, ms.stop)

	log.Printf("[Scheduler] Started with check interval: %v", ms.CheckInterval)
}

// Stop stops the scheduler. Safe to call repeatedly and without a prior
// Start; only the first call after a Start does anything.
func (ms *MaintenanceScheduler) Stop() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.ticker == nil {
		return
	}
	ms.ticker.Stop()
	ms.ticker = nil
	close(ms.stop)
	ms.wg.Wait()
	log.Println("[Scheduler] Stopped")
}

func (ms *MaintenanceScheduler) run(ticker *time.Ticker, stop chan bool) {
	defer ms.wg.Done()

	// Run immediately on start
	ms.sweep()

	for {
		select {
		case <-ticker.C:
			ms.sweep()
		case <-stop:
			return
		}
	}
}

func (ms *MaintenanceScheduler) sweep() {
	ctx := context.Background()
	start := time.Now()

	if err := ms.Engine.SweepStale(ctx); err != nil {
		log.Printf("[Scheduler] Sweep finished with errors after %v: %v", time.Since(start), err)
		return
	}
	log.Printf("[Scheduler] Sweep completed in %v", time.Since(start))
}

// RunNow triggers an immediate sweep (for testing/admin).
func (ms *MaintenanceScheduler) RunNow() {
	ms.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (ms *MaintenanceScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(ms.CheckInterval)
}
