package fills

import "trade-ledger/internal/types"

// Expand splits a fill into one unit per contract, each carrying the fill's
// per-unit fee.
func Expand(f types.Fill) []types.SingleUnitFill {
	n := abs(f.Quantity)
	units := make([]types.SingleUnitFill, n)
	for i := range units {
		units[i] = types.SingleUnitFill{
			Time:       f.Time,
			Symbol:     f.Symbol,
			Side:       f.Side(),
			Price:      f.Price,
			FeePerUnit: f.FeePerUnit,
			Seq:        f.Seq,
		}
	}
	return units
}
