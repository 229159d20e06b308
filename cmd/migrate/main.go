package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"trade-ledger/internal/ledger"
	"trade-ledger/internal/logger"
	"trade-ledger/internal/store"

	"github.com/joho/godotenv"
)

// migrate applies the embedded SQLite ledger schema. Usage:
//
//	migrate [-config config.yaml] [-db path] [up|down|status|version]
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dbPath := flag.String("db", "", "ledger database path (overrides ledger.path)")
	flag.Parse()

	_ = godotenv.Load()
	if err := logger.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	ctx := context.Background()

	path := *dbPath
	if path == "" {
		cfg, err := store.LoadConfig(*configPath)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to load config", err, "path", *configPath)
			os.Exit(1)
		}
		if cfg.Ledger.Backend != store.BackendSQLite {
			logger.Error(ctx, "Ledger backend is not SQLITE, nothing to migrate", "backend", cfg.Ledger.Backend)
			os.Exit(1)
		}
		path = cfg.Ledger.Path
	}

	command := "up"
	args := flag.Args()
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	db, err := ledger.OpenSQLiteDB(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open ledger database", err, "path", path)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info(ctx, "Running ledger migrations", "path", path, "command", command)
	if err := ledger.Migrate(db, command, args...); err != nil {
		logger.ErrorWithErr(ctx, "Ledger migration failed", err, "command", command)
		os.Exit(1)
	}
	logger.Info(ctx, "Migrations completed successfully")
}
