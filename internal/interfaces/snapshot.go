package interfaces

import "trade-ledger/internal/types"

// SnapshotWriter writes one batch's annotated trades to their own file and
// returns its path, or "" when there was nothing to write.
type SnapshotWriter interface {
	Write(rows []types.LedgerRow) (path string, err error)
}
