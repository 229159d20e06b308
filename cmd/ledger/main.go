package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"trade-ledger/internal/engine"
	"trade-ledger/internal/fills"
	"trade-ledger/internal/logger"
	"trade-ledger/internal/types"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	fillsPath := flag.String("fills", "", "process this fill file instead of the inbox")
	jsonOut := flag.Bool("json", false, "print run summaries as JSON")
	flag.Parse()

	explicitConfig := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicitConfig = true
		}
	})

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(*configPath, explicitConfig, *fillsPath, *jsonOut))
}

func run(configPath string, explicitConfig bool, fillsPath string, jsonOut bool) int {
	defer shutdownSystem()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx, configPath, explicitConfig)
	if err != nil {
		return 1
	}
	compressOldLogs(ctx, cfg)

	ls, err := initializeLedger(ctx, cfg)
	if err != nil {
		return 1
	}
	defer ls.Close()

	pipeline := initializePipeline(cfg, ls)

	var summaries []*types.RunSummary
	if fillsPath != "" {
		batch, rerr := fills.ReadFile(fillsPath)
		if rerr != nil {
			logger.ErrorWithErr(ctx, "Failed to read fill batch", rerr, "path", fillsPath)
			return 1
		}
		summary, rerr := pipeline.Run(ctx, batch)
		if summary != nil {
			summaries = append(summaries, summary)
		}
		err = rerr
	} else {
		summaries, err = engine.ProcessInbox(ctx, pipeline, cfg.Inbox.Dir, cfg.Inbox.ArchiveDir)
	}

	printSummaries(summaries, jsonOut)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printSummaries(summaries []*types.RunSummary, jsonOut bool) {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summaries)
		return
	}
	if len(summaries) == 0 {
		fmt.Println("No fill batches processed.")
		return
	}
	for _, s := range summaries {
		fmt.Printf("%s  %s\n", s.RunID, s.Source)
		if s.Empty {
			fmt.Printf("  no valid fills (%d rows in, %d dropped)\n", s.RowsIn, s.RowsDropped)
			continue
		}
		fmt.Printf("  rows in %d, dropped %d, filtered %d\n", s.RowsIn, s.RowsDropped, s.RowsFiltered)
		fmt.Printf("  trades produced %d, appended %d, already recorded %d\n", s.TradesProduced, s.TradesAppended, s.TradesDuplicate)
		fmt.Printf("  unmatched fills %d, ledger rows %d\n", s.UnmatchedCount, s.LedgerRows)
		if len(s.DefaultMultiplier) > 0 {
			fmt.Printf("  default multiplier used for %v\n", s.DefaultMultiplier)
		}
		if s.SnapshotPath != "" {
			fmt.Printf("  snapshot %s\n", s.SnapshotPath)
		}
	}
}
