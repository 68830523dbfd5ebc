package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/logger"
	"github.com/fleetdesk/backend/internal/ratelimit"
)

// DefaultSweepSchedule runs the sweep every five minutes.
const DefaultSweepSchedule = "@every 5m"

// IdlePruner drops per-client state unused for longer than idle.
type IdlePruner interface {
	Prune(idle time.Duration) int
}

// MaintenanceService periodically drops expired rate windows, aged
// violations, expired blocks and idle flood buckets.
type MaintenanceService struct {
	ledger   *audit.Ledger
	limiter  *ratelimit.Limiter
	pruner   IdlePruner
	idle     time.Duration
	schedule string
	cron     *cron.Cron
}

// NewMaintenanceService returns a MaintenanceService. An empty schedule uses
// DefaultSweepSchedule.
func NewMaintenanceService(ledger *audit.Ledger, limiter *ratelimit.Limiter, schedule string) *MaintenanceService {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &MaintenanceService{ledger: ledger, limiter: limiter, schedule: schedule}
}

// WithPruner adds p to every sweep, dropping entries idle for longer than idle.
func (s *MaintenanceService) WithPruner(p IdlePruner, idle time.Duration) *MaintenanceService {
	s.pruner = p
	s.idle = idle
	return s
}

// SweepResult counts what one sweep removed.
type SweepResult struct {
	Violations int
	Windows    int
	Clients    int
}

// Sweep runs one maintenance pass.
func (s *MaintenanceService) Sweep(ctx context.Context) SweepResult {
	res := SweepResult{
		Violations: s.ledger.Sweep(ctx),
		Windows:    s.limiter.Cleanup(),
	}
	if s.pruner != nil {
		res.Clients = s.pruner.Prune(s.idle)
	}
	if res.Violations > 0 || res.Windows > 0 || res.Clients > 0 {
		logger.Log().WithField("violations", res.Violations).
			WithField("windows", res.Windows).
			WithField("clients", res.Clients).
			Debug("security sweep")
	}
	return res
}

// Start schedules the sweep. Stop must be called to release the scheduler.
func (s *MaintenanceService) Start() error {
	c := cron.New(cron.WithLogger(cron.PrintfLogger(logger.Log().WithField("component", "maintenance"))))
	if _, err := c.AddFunc(s.schedule, func() { s.Sweep(context.Background()) }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.schedule, err)
	}
	s.cron = c
	c.Start()
	logger.Log().WithField("schedule", s.schedule).Info("security sweep scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *MaintenanceService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
