package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"trade-ledger/internal/engine"
	"trade-ledger/internal/engine/engineobs"
	"trade-ledger/internal/interfaces"
	"trade-ledger/internal/ledger"
	"trade-ledger/internal/logger"
	"trade-ledger/internal/runlog"
	"trade-ledger/internal/snapshot"
	"trade-ledger/internal/snapshot/snapshotobs"
	"trade-ledger/internal/store"
	"trade-ledger/internal/trace"

	"github.com/joho/godotenv"
)

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func shutdownSystem() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(ctx)
	logger.Sync()
}

// loadConfig reads the config file, falling back to defaults when the default
// path does not exist.
func loadConfig(ctx context.Context, path string, explicit bool) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) && !explicit {
		logger.Warn(ctx, "Config file not found, using defaults", "path", path)
		cfg = store.Default()
		if v := os.Getenv("LEDGER_PATH"); v != "" {
			cfg.Ledger.Path = v
		}
		err = cfg.Validate()
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// compressOldLogs gzips run logs past the retention window. The
// LEDGER_LOG_RETENTION_DAYS environment variable overrides the config.
func compressOldLogs(ctx context.Context, cfg *store.Config) {
	days := cfg.RunLog.RetentionDays
	if v := os.Getenv("LEDGER_LOG_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			logger.Warn(ctx, "Ignoring invalid LEDGER_LOG_RETENTION_DAYS", "value", v)
		} else {
			days = n
		}
	}
	if err := runlog.CompressOlder(cfg.RunLog.Dir, days); err != nil {
		logger.Warn(ctx, "Failed to compress old run logs", "error", err)
	}
}

// initializeLedger opens the configured ledger backend
func initializeLedger(ctx context.Context, cfg *store.Config) (interfaces.LedgerStore, error) {
	ls, err := ledger.Open(cfg.Ledger.Backend, cfg.Ledger.Path, cfg.Location())
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open ledger", err,
			"backend", cfg.Ledger.Backend,
			"path", cfg.Ledger.Path,
		)
		return nil, err
	}
	logger.Info(ctx, "Ledger opened",
		"backend", cfg.Ledger.Backend,
		"path", cfg.Ledger.Path,
		"timezone", cfg.Timezone,
	)
	return ls, nil
}

// initializePipeline builds the engine and wraps it with observability
func initializePipeline(cfg *store.Config, ls interfaces.LedgerStore) interfaces.Pipeline {
	var sw interfaces.SnapshotWriter
	if cfg.Ledger.SnapshotDir != "" {
		sw = snapshotobs.Wrap(snapshot.New(cfg.Ledger.SnapshotDir, cfg.Location()))
	}
	return engineobs.Wrap(engine.NewPipeline(cfg, ls, sw))
}
