package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/ratelimit"
)

type countingPruner struct {
	calls []time.Duration
}

func (p *countingPruner) Prune(idle time.Duration) int {
	p.calls = append(p.calls, idle)
	return 3
}

func TestMaintenanceService_Sweep(t *testing.T) {
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ledger := audit.New(audit.DefaultConfig(), audit.WithClock(clock))
	limiter := ratelimit.New().WithClock(clock)

	ledger.Record(context.Background(), audit.Violation{Type: audit.TypeXSS, UserID: "u1"})
	require.True(t, limiter.IsAllowed("u1:create:vehicles", 20, time.Minute))

	svc := NewMaintenanceService(ledger, limiter, "")
	assert.Equal(t, SweepResult{}, svc.Sweep(context.Background()))

	now = now.Add(25 * time.Hour)
	assert.Equal(t, SweepResult{Violations: 1, Windows: 1}, svc.Sweep(context.Background()))
	assert.Zero(t, ledger.Len())
	assert.Zero(t, limiter.Len())
}

func TestMaintenanceService_SweepPrunesIdleClients(t *testing.T) {
	pruner := &countingPruner{}
	svc := NewMaintenanceService(audit.New(audit.DefaultConfig()), ratelimit.New(), "").
		WithPruner(pruner, 10*time.Minute)

	res := svc.Sweep(context.Background())
	assert.Equal(t, 3, res.Clients)
	assert.Equal(t, []time.Duration{10 * time.Minute}, pruner.calls)
}

func TestMaintenanceService_StartStop(t *testing.T) {
	svc := NewMaintenanceService(audit.New(audit.DefaultConfig()), ratelimit.New(), "")
	assert.Equal(t, DefaultSweepSchedule, svc.schedule)
	require.NoError(t, svc.Start())
	svc.Stop()

	bad := NewMaintenanceService(audit.New(audit.DefaultConfig()), ratelimit.New(), "every now and then")
	assert.Error(t, bad.Start())
	bad.Stop()
}
