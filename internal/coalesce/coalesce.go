// Package coalesce folds unit round trips that came from the same pair of
// fills back into one sized trade.
package coalesce

import (
	"sort"

	"trade-ledger/internal/types"
)

type groupKey struct {
	enteredAt  int64
	exitedAt   int64
	symbol     string
	direction  types.Direction
	entryPrice string
	exitPrice  string
}

func keyOf(rt types.RoundTrip) groupKey {
	return groupKey{
		enteredAt:  rt.EnteredAt.UnixNano(),
		exitedAt:   rt.ExitedAt.UnixNano(),
		symbol:     rt.Symbol,
		direction:  rt.Direction,
		entryPrice: rt.EntryPrice.String(),
		exitPrice:  rt.ExitPrice.String(),
	}
}

// Coalesce groups trips by entry/exit time, symbol, direction and prices,
// summing size, fees and pnl. The result is sorted by entry time; TradeIndex is
// left for the annotator, which knows the trading-day timezone.
func Coalesce(trips []types.RoundTrip) []types.CoalescedTrade {
	index := make(map[groupKey]int, len(trips))
	out := make([]types.CoalescedTrade, 0, len(trips))
	for _, rt := range trips {
		k := keyOf(rt)
		if i, ok := index[k]; ok {
			g := &out[i]
			g.Size += rt.Size
			g.Fees = g.Fees.Add(rt.Fees)
			g.PnL = g.PnL.Add(rt.PnL)
			continue
		}
		index[k] = len(out)
		out = append(out, types.CoalescedTrade{RoundTrip: rt})
	}
	Sort(out)
	return out
}

// Sort orders trades by entry time with deterministic tie-breaks.
func Sort(trades []types.CoalescedTrade) {
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.EnteredAt.Equal(b.EnteredAt) {
			return a.EnteredAt.Before(b.EnteredAt)
		}
		if !a.ExitedAt.Equal(b.ExitedAt) {
			return a.ExitedAt.Before(b.ExitedAt)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Direction != b.Direction {
			return a.Direction < b.Direction
		}
		if !a.EntryPrice.Equal(b.EntryPrice) {
			return a.EntryPrice.LessThan(b.EntryPrice)
		}
		return a.ExitPrice.LessThan(b.ExitPrice)
	})
}
