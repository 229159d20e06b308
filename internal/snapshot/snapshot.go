// Package snapshot writes the trades reconstructed from one batch to a
// standalone performance file alongside the ledger.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trade-ledger/internal/interfaces"
	"trade-ledger/internal/ledger"
	"trade-ledger/internal/types"
)

type writer struct {
	dir string
	loc *time.Location
}

var _ interfaces.SnapshotWriter = (*writer)(nil)

// New returns a writer for dir. An empty dir disables snapshots.
func New(dir string, loc *time.Location) interfaces.SnapshotWriter {
	return &writer{dir: dir, loc: loc}
}

// FileName names a snapshot after the first and last trade days it covers.
func FileName(rows []types.LedgerRow) string {
	first, last := rows[0].TradeDay, rows[0].TradeDay
	for _, r := range rows[1:] {
		if r.TradeDay < first {
			first = r.TradeDay
		}
		if r.TradeDay > last {
			last = r.TradeDay
		}
	}
	return fmt.Sprintf("Performance_%s_to_%s.csv", first, last)
}

func (w *writer) Write(rows []types.LedgerRow) (string, error) {
	if w.dir == "" || len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(w.dir, FileName(rows))
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	if err := ledger.WriteCSV(out, rows, w.loc); err != nil {
		_ = out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return outPath, nil
}
