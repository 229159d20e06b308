package interfaces

import (
	"context"

	"trade-ledger/internal/types"
)

type Pipeline interface {
	Run(ctx context.Context, batch types.FillBatch) (*types.RunSummary, error)
}
