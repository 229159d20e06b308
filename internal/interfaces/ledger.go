package interfaces

import (
	"context"

	"trade-ledger/internal/types"
)

// LedgerStore persists the performance ledger. Replace swaps the whole
// ledger in one step; a failed Replace leaves the previous ledger intact.
type LedgerStore interface {
	Load(ctx context.Context) ([]types.LedgerRow, error)
	Replace(ctx context.Context, rows []types.LedgerRow) error
	Close() error
}
