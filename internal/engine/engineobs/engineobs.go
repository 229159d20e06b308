package engineobs

import (
	"context"
	"time"

	"trade-ledger/internal/interfaces"
	"trade-ledger/internal/logger"
	"trade-ledger/internal/trace"
	"trade-ledger/internal/types"
)

type observablePipeline struct {
	pipeline interfaces.Pipeline
}

var _ interfaces.Pipeline = (*observablePipeline)(nil)

func Wrap(p interfaces.Pipeline) interfaces.Pipeline {
	return &observablePipeline{
		pipeline: p,
	}
}

func (op *observablePipeline) Run(ctx context.Context, batch types.FillBatch) (*types.RunSummary, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Run")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Starting ledger run",
		"source", batch.Source,
		"rows", len(batch.Rows),
	)

	summary, err := op.pipeline.Run(ctx, batch)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Ledger run failed", err,
			"source", batch.Source,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return summary, err
	}

	logger.InfoSkip(ctx, 1, "Ledger run completed",
		"run_id", summary.RunID,
		"source", batch.Source,
		"trades_appended", summary.TradesAppended,
		"unmatched", summary.UnmatchedCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return summary, nil
}
