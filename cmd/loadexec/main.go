// Package main is the loadexec service entrypoint: it polls one inbox
// root for load packages and drives each one to completion against a
// configured destination.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loadqueue/loadexec"
	"github.com/loadqueue/loadexec/config"
	"github.com/loadqueue/loadexec/destination/sqlitedest"
	"github.com/loadqueue/loadexec/loadstorage"
	"github.com/loadqueue/loadexec/metrics"
)

func main() {
	configPath := flag.String("config", "configs/loadexec.yaml", "path to configuration file")
	inboxRoot := flag.String("inbox", "./inbox", "root directory holding load packages")
	dsn := flag.String("dsn", "warehouse.db", "sqlite destination DSN")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loadexec: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	storage, err := loadstorage.New(*inboxRoot)
	if err != nil {
		log.Error("open storage", "error", err)
		os.Exit(1)
	}

	factory := sqlitedest.NewFactory(*dsn)

	reg := metrics.New(cfg.MetricsEnabled)
	executor := loadexec.New(storage, factory, cfg, reg, log)

	sweeper := loadexec.NewArchiveSweeper(storage, loadexec.ArchiveSweeperConfig{Retention: cfg.ArchiveRetention}, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := sweeper.Start(ctx); err != nil {
		log.Error("start archive sweeper", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := sweeper.Stop(cfg.LockTimeout); err != nil {
			log.Warn("stop archive sweeper", "error", err)
		}
	}()

	log.Info("loadexec starting", "inbox", *inboxRoot, "dsn", *dsn)
	runLoop(ctx, executor, cfg, log)
	log.Info("loadexec stopped")
}

// runLoop repeatedly calls Executor.Run until ctx is cancelled. Each call
// processes at most one load package; ran=false, err=nil means the inbox
// is currently empty and the loop backs off for one poll interval.
func runLoop(ctx context.Context, executor *loadexec.Executor, cfg *config.Config, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ran, err := executor.Run(ctx)
		var failed *loadexec.JobFailed
		switch {
		case errors.As(err, &failed):
			log.Error("load package aborted", "load_id", failed.LoadID, "job_id", failed.JobID, "message", failed.Message)
		case err != nil:
			log.Error("run failed, backing off", "error", err)
			if sleepCtx(ctx, cfg.PollInterval) {
				return
			}
		case !ran:
			if sleepCtx(ctx, cfg.PollInterval) {
				return
			}
		}
	}
}

// sleepCtx waits d or until ctx is cancelled, reporting whether the
// caller should stop.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-timer.C:
		return false
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
