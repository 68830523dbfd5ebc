// Command seed fills a development database with sample fleet data. Records
// go through the same guarded store as API writes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fleetdesk/backend/internal/api/routes"
	"github.com/fleetdesk/backend/internal/config"
	"github.com/fleetdesk/backend/internal/database"
	"github.com/fleetdesk/backend/internal/interceptor"
	"github.com/fleetdesk/backend/internal/logger"
)

func main() {
	dbPath := flag.String("db", "", "database path (defaults to FLEETDESK_DB_PATH)")
	flag.Parse()

	logger.Init(true, os.Stdout)
	log := logger.Log()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if *dbPath != "" {
		cfg.DatabasePath = *dbPath
	}
	// seeding is a bulk write from one actor
	cfg.Security.CreateLimit = config.Limit{Max: 1000, Window: time.Minute}

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}

	ctx := interceptor.WithActor(context.Background(), interceptor.Actor{UserID: "seed", SessionID: "seed"})
	p, err := routes.Build(ctx, db, cfg)
	if err != nil {
		log.WithError(err).Fatal("build pipeline")
	}

	if err := seed(ctx, p.Store); err != nil {
		log.WithError(err).Fatal("seed")
	}
	fmt.Println("✓ Database seeded successfully")
}

func seed(ctx context.Context, store interceptor.Store) error {
	vehicles := []map[string]any{
		{"plate": "AB-123-CD", "brand": "Toyota", "model": "Corolla", "year": 2019, "mileage": 84000},
		{"plate": "EF-456-GH", "brand": "Ford", "model": "Transit", "year": 2021, "mileage": 42000, "notes": "Refrigerated cargo van"},
		{"plate": "IJ-789-KL", "brand": "Volvo", "model": "FH16", "year": 2018, "mileage": 310000},
	}

	for i, v := range vehicles {
		created, err := store.Create(ctx, "vehicles", v)
		if err != nil {
			return fmt.Errorf("vehicle %s: %w", v["plate"], err)
		}
		id, _ := created["id"].(string)
		fmt.Printf("✓ Vehicle %s\n", v["plate"])

		if _, err := store.Create(ctx, "drivers", map[string]any{
			"name":       fmt.Sprintf("Driver %d", i+1),
			"email":      fmt.Sprintf("driver%d@fleetdesk.example", i+1),
			"phone":      "+31 6 1234 567" + fmt.Sprint(i),
			"vehicle_id": id,
		}); err != nil {
			return fmt.Errorf("driver for %s: %w", v["plate"], err)
		}

		for _, tx := range []map[string]any{
			{"vehicle_id": id, "kind": "income", "category": "delivery", "amount": "1250.00", "date": "2026-05-01"},
			{"vehicle_id": id, "kind": "expense", "category": "fuel", "amount": "180,40", "date": "2026-05-03"},
		} {
			if _, err := store.Create(ctx, "transactions", tx); err != nil {
				return fmt.Errorf("transaction for %s: %w", v["plate"], err)
			}
		}
	}

	if _, err := store.Create(ctx, "subscriptions", map[string]any{
		"plan": "fleet-pro", "billing_email": "billing@fleetdesk.example", "amount": 49.0, "renews_on": "2026-06-01",
	}); err != nil {
		return fmt.Errorf("subscription: %w", err)
	}
	fmt.Println("✓ Drivers, transactions and subscription")
	return nil
}
