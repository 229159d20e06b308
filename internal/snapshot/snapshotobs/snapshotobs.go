package snapshotobs

import (
	"context"

	"trade-ledger/internal/interfaces"
	"trade-ledger/internal/logger"
	"trade-ledger/internal/trace"
	"trade-ledger/internal/types"
)

type observableSnapshotWriter struct {
	writer interfaces.SnapshotWriter
}

var _ interfaces.SnapshotWriter = (*observableSnapshotWriter)(nil)

func Wrap(writer interfaces.SnapshotWriter) interfaces.SnapshotWriter {
	return &observableSnapshotWriter{
		writer: writer,
	}
}

func (osw *observableSnapshotWriter) Write(rows []types.LedgerRow) (string, error) {
	ctx := context.Background()
	ctx, span := trace.StartSpan(ctx, "snapshot.Write")
	defer span.End()

	path, err := osw.writer.Write(rows)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Batch snapshot failed", err,
			"trades", len(rows),
		)
		return "", err
	}

	if path == "" {
		logger.DebugSkip(ctx, 1, "No batch snapshot written",
			"trades", len(rows),
		)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "Batch snapshot written",
		"trades", len(rows),
		"csv_path", path,
	)

	return path, nil
}
