package engine

import (
	"trade-ledger/internal/interfaces"
	"trade-ledger/internal/store"
)

func NewPipeline(cfg *store.Config, ls interfaces.LedgerStore, sw interfaces.SnapshotWriter) interfaces.Pipeline {
	return New(cfg, ls, sw)
}
