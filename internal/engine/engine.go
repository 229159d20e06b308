// Package engine runs one fill batch through normalization, matching,
// coalescing and annotation, then merges the result into the ledger.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trade-ledger/internal/annotate"
	"trade-ledger/internal/coalesce"
	"trade-ledger/internal/fills"
	"trade-ledger/internal/interfaces"
	"trade-ledger/internal/ledger"
	"trade-ledger/internal/logger"
	"trade-ledger/internal/matcher"
	"trade-ledger/internal/runlog"
	"trade-ledger/internal/store"
	"trade-ledger/internal/types"
)

type Engine struct {
	cfg        *store.Config
	ledger     interfaces.LedgerStore
	snapshots  interfaces.SnapshotWriter
	normalizer *fills.Normalizer
	matcher    *matcher.Matcher
	annotator  *annotate.Annotator
}

func New(cfg *store.Config, ls interfaces.LedgerStore, sw interfaces.SnapshotWriter) *Engine {
	return &Engine{
		cfg:       cfg,
		ledger:    ls,
		snapshots: sw,
		normalizer: fills.NewNormalizer(fills.Options{
			SourceLocation: cfg.SourceLocation(),
			Layouts:        cfg.Fills.TimestampLayouts,
			Symbols:        cfg.Fills.Symbols,
		}),
		matcher: matcher.New(
			matcher.NewMultipliers(cfg.Contracts.DefaultMultiplier, cfg.Contracts.Multipliers),
			cfg.Matcher.Workers,
		),
		annotator: annotate.New(cfg.Location()),
	}
}

// Run processes one closed batch. A batch without valid fills is a no-op. The
// ledger is written once, after the whole batch has been reconstructed, and
// only while holding the ledger lock.
func (e *Engine) Run(ctx context.Context, batch types.FillBatch) (summary *types.RunSummary, err error) {
	summary = &types.RunSummary{
		RunID:  uuid.NewString(),
		Source: batch.Source,
		RowsIn: len(batch.Rows),
	}
	defer func() { e.record(ctx, summary, err) }()

	norm := e.normalizer.Normalize(batch.Rows)
	summary.RowsDropped = norm.Malformed
	summary.RowsFiltered = norm.Filtered
	summary.Issues = norm.Issues
	for _, is := range norm.Issues {
		logger.Warn(ctx, "Dropped malformed fill row",
			"run_id", summary.RunID,
			"row", is.Row,
			"reason", is.Reason,
		)
	}

	if len(norm.Fills) == 0 {
		summary.Empty = true
		logger.Info(ctx, "Batch has no valid fills, nothing to do",
			"run_id", summary.RunID,
			"source", batch.Source,
		)
		return summary, nil
	}

	matched, err := e.matcher.Match(ctx, norm.Fills)
	if err != nil {
		return summary, fmt.Errorf("match fills: %w", err)
	}
	summary.RoundTrips = len(matched.Trips)
	summary.Unmatched = matched.Unmatched
	for _, u := range matched.Unmatched {
		summary.UnmatchedCount += u.Count
		logger.Unmatched(ctx, u.Symbol, string(u.Side), u.Count,
			"run_id", summary.RunID,
			"time", u.Time,
			"price", u.Price.String(),
		)
	}
	summary.DefaultMultiplier = matched.DefaultMultiplier
	if len(matched.DefaultMultiplier) > 0 {
		logger.Warn(ctx, "No contract multiplier configured, default applied",
			"run_id", summary.RunID,
			"symbols", matched.DefaultMultiplier,
			"default_multiplier", e.cfg.Contracts.DefaultMultiplier,
		)
	}

	trades := coalesce.Coalesce(matched.Trips)
	summary.TradesProduced = len(trades)

	unlock, err := ledger.Lock(e.cfg.Ledger.Path)
	if err != nil {
		return summary, err
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			logger.ErrorWithErr(ctx, "Failed to release ledger lock", uerr, "path", e.cfg.Ledger.Path)
		}
	}()

	existing, err := e.ledger.Load(ctx)
	if err != nil {
		return summary, err
	}

	var seed annotate.Seed
	if len(trades) > 0 {
		seed = annotate.SeedFrom(existing, trades[0].EnteredAt)
	}
	rows := e.annotator.Annotate(trades, seed)

	merged := ledger.Merge(existing, rows)
	if err := e.ledger.Replace(ctx, merged.Rows); err != nil {
		return summary, err
	}
	summary.TradesAppended = merged.Appended
	summary.TradesDuplicate = merged.Duplicates
	summary.LedgerRows = len(merged.Rows)

	// only a committed batch gets a snapshot
	if e.snapshots != nil {
		path, serr := e.snapshots.Write(rows)
		if serr != nil {
			logger.ErrorWithErr(ctx, "Batch snapshot not written", serr, "run_id", summary.RunID)
		}
		summary.SnapshotPath = path
	}
	return summary, nil
}

func (e *Engine) record(ctx context.Context, s *types.RunSummary, runErr error) {
	if runErr == nil {
		logger.Summary(ctx, s.RunID,
			"source", s.Source,
			"rows_in", s.RowsIn,
			"rows_dropped", s.RowsDropped,
			"rows_filtered", s.RowsFiltered,
			"trades_produced", s.TradesProduced,
			"trades_appended", s.TradesAppended,
			"trades_duplicate", s.TradesDuplicate,
			"unmatched", s.UnmatchedCount,
			"ledger_rows", s.LedgerRows,
		)
	}

	if e.cfg.RunLog.Dir == "" {
		return
	}
	entry := runlog.Entry{Event: runlog.EventRun, Source: s.Source, Summary: s}
	if runErr != nil {
		entry.Event = runlog.EventFailed
		entry.Error = runErr.Error()
	}
	if err := runlog.Append(e.cfg.RunLog.Dir, entry); err != nil {
		logger.ErrorWithErr(ctx, "Failed to append run log", err, "dir", e.cfg.RunLog.Dir)
	}
}

// IsFatal reports whether err came from the ledger itself rather than from
// the batch.
func IsFatal(err error) bool {
	return errors.Is(err, ledger.ErrLedgerRead) || errors.Is(err, ledger.ErrLedgerWrite)
}
