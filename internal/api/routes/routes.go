package routes

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/fleetdesk/backend/internal/api/handlers"
	"github.com/fleetdesk/backend/internal/audit"
	"github.com/fleetdesk/backend/internal/cerberus"
	"github.com/fleetdesk/backend/internal/classifier"
	"github.com/fleetdesk/backend/internal/config"
	"github.com/fleetdesk/backend/internal/database"
	"github.com/fleetdesk/backend/internal/fieldvalidator"
	"github.com/fleetdesk/backend/internal/interceptor"
	"github.com/fleetdesk/backend/internal/logger"
	"github.com/fleetdesk/backend/internal/patterns"
	"github.com/fleetdesk/backend/internal/ratelimit"
	"github.com/fleetdesk/backend/internal/sanitizer"
	"github.com/fleetdesk/backend/internal/services"
)

// Pipeline holds the long-lived security components built by Register.
// The caller owns starting and stopping Maintenance.
type Pipeline struct {
	Catalog     *patterns.Catalog
	Ledger      *audit.Ledger
	Guard       *interceptor.Guard
	Store       *interceptor.GuardedStore
	Security    *services.SecurityService
	Cerberus    *cerberus.Cerberus
	Maintenance *services.MaintenanceService
}

// Build migrates the schema and assembles the input-security pipeline in
// front of the resource service.
func Build(ctx context.Context, db *gorm.DB, cfg config.Config) (*Pipeline, error) {
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	sec := cfg.Security
	catalog, err := patterns.Load(sec.PatternFile)
	if err != nil {
		return nil, fmt.Errorf("load pattern catalog: %w", err)
	}

	securitySvc := services.NewSecurityService(db)
	opts := []audit.Option{
		audit.WithCatalog(catalog),
		audit.WithStore(services.NewViolationStore(db)),
		audit.WithBlockListener(securitySvc.OnBlock),
	}
	if alerts := services.NewAlertService(sec.AlertURLs); alerts.Enabled() {
		opts = append(opts, audit.WithAlerter(alerts))
	}
	ledger := audit.New(ledgerConfig(sec), opts...)
	if err := ledger.Load(ctx); err != nil {
		logger.Log().WithError(err).Warn("could not restore security violations; starting empty")
	}

	san := sanitizer.New(catalog)
	validator := fieldvalidator.New(classifier.New(catalog, san))
	limiter := ratelimit.New()
	guard := interceptor.New(guardConfig(sec), validator, limiter, ledger)
	cerb := cerberus.New(sec, ledger)

	return &Pipeline{
		Catalog:     catalog,
		Ledger:      ledger,
		Guard:       guard,
		Store:       interceptor.NewGuardedStore(guard, services.NewResourceService(db)),
		Security:    securitySvc,
		Cerberus:    cerb,
		Maintenance: services.NewMaintenanceService(ledger, limiter, sec.SweepSchedule).WithPruner(cerb, cerberus.FloodIdle),
	}, nil
}

// Register wires up API routes on router and returns the pipeline behind them.
func Register(ctx context.Context, router *gin.Engine, db *gorm.DB, cfg config.Config) (*Pipeline, error) {
	p, err := Build(ctx, db, cfg)
	if err != nil {
		return nil, err
	}

	router.GET("/api/v1/health", handlers.HealthHandler(db))

	cerb := p.Cerberus
	api := router.Group("/api/v1")

	// Security endpoints identify the caller but do not refuse blocked identifiers.
	securityHandler := handlers.NewSecurityHandler(p.Ledger, p.Security)
	security := api.Group("/security", cerb.Identify())
	security.GET("/violations", securityHandler.GetViolations)
	security.DELETE("/violations", securityHandler.ClearViolations)
	security.GET("/metrics", securityHandler.GetMetrics)
	security.GET("/blocks", securityHandler.GetBlocks)
	security.DELETE("/blocks/:id", securityHandler.Unblock)
	security.GET("/decisions", securityHandler.GetDecisions)

	resourceHandler := handlers.NewResourceHandler(p.Store, services.Resources())
	resources := api.Group("/:resource", resourceHandler.KnownResource, cerb.Middleware())
	resources.GET("", resourceHandler.List)
	resources.POST("", resourceHandler.Create)
	resources.GET("/:id", resourceHandler.Get)
	resources.PUT("/:id", resourceHandler.Update)
	resources.DELETE("/:id", resourceHandler.Delete)

	return p, nil
}

func ledgerConfig(sec config.SecurityConfig) audit.Config {
	cfg := audit.DefaultConfig()
	cfg.MemoryCap = sec.MemoryCap
	cfg.StoreCap = sec.StoreCap
	cfg.BlockThreshold = sec.BlockThreshold
	cfg.BlockWindow = sec.BlockWindow
	cfg.BlockCooldown = sec.BlockCooldown
	cfg.MetricsWindow = sec.MetricsWindow
	cfg.Retention = sec.Retention
	cfg.AlertTimeout = sec.AlertTimeout
	return cfg
}

func guardConfig(sec config.SecurityConfig) interceptor.Config {
	cfg := interceptor.DefaultConfig()
	cfg.StrictMode = sec.StrictMode
	for op, l := range map[interceptor.Operation]config.Limit{
		interceptor.OpCreate: sec.CreateLimit,
		interceptor.OpUpdate: sec.UpdateLimit,
		interceptor.OpDelete: sec.DeleteLimit,
	} {
		if l.Max > 0 {
			cfg.Limits[op] = interceptor.Limit{Max: l.Max, Window: l.Window}
		}
	}
	return cfg
}
