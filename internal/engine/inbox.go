package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"trade-ledger/internal/fills"
	"trade-ledger/internal/interfaces"
	"trade-ledger/internal/ledger"
	"trade-ledger/internal/logger"
	"trade-ledger/internal/types"
)

// ProcessInbox runs every CSV file in dir through p, in name order. Each
// processed file is moved to archiveDir, or removed when archiveDir is empty.
// A file whose run fails stays in the inbox and the remaining files are still
// processed, unless the failure concerns the ledger itself.
func ProcessInbox(ctx context.Context, p interfaces.Pipeline, dir, archiveDir string) ([]*types.RunSummary, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info(ctx, "Inbox does not exist, nothing to process", "dir", dir)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var (
		summaries []*types.RunSummary
		errs      []error
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		path := filepath.Join(dir, entry.Name())
		batch, err := fills.ReadFile(path)
		if err != nil {
			logger.ErrorWithErr(ctx, "Failed to read fill batch", err, "path", path)
			errs = append(errs, err)
			continue
		}

		op := logger.StartOperation(ctx, "inbox.batch", "path", path, "rows", len(batch.Rows))
		summary, err := p.Run(op.GetContext(), batch)
		if err != nil {
			op.EndWithError(err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			if IsFatal(err) || errors.Is(err, ledger.ErrLedgerLocked) {
				break
			}
			continue
		}
		op.End("trades_appended", summary.TradesAppended)
		summaries = append(summaries, summary)

		if err := retire(path, archiveDir); err != nil {
			logger.ErrorWithErr(ctx, "Failed to retire processed batch", err, "path", path)
			errs = append(errs, err)
		}
	}
	return summaries, errors.Join(errs...)
}

func retire(path, archiveDir string) error {
	if archiveDir == "" {
		return os.Remove(path)
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(archiveDir, filepath.Base(path)))
}
