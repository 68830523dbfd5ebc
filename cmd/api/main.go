package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fleetdesk/backend/internal/config"
	"github.com/fleetdesk/backend/internal/database"
	"github.com/fleetdesk/backend/internal/logger"
	"github.com/fleetdesk/backend/internal/server"
	"github.com/fleetdesk/backend/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log().WithError(err).Fatal("load config")
	}

	// Log to both stdout and a rotated file
	out := io.Writer(os.Stdout)
	if err := os.MkdirAll(cfg.LogDir, 0o755); err == nil {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "fleetdesk.log"),
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	logger.Init(cfg.Debug, out)
	log := logger.Log()

	log.WithField("version", version.Full()).Infof("starting %s backend", version.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		log.WithError(err).Fatal("connect database")
	}

	srv, err := server.New(ctx, db, cfg)
	if err != nil {
		log.WithError(err).Fatal("build server")
	}

	maintenance := srv.Pipeline.Maintenance
	if err := maintenance.Start(); err != nil {
		log.WithError(err).Fatal("start maintenance")
	}
	defer maintenance.Stop()

	log.WithField("port", cfg.HTTPPort).Info("listening")
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("server error")
	}

	// let pending critical alerts finish before exiting
	srv.Pipeline.Ledger.Wait()
	log.Info("shutdown complete")
}
