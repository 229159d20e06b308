// Package matcher pairs single-unit buy and sell fills per symbol in FIFO
// order and produces round trips.
package matcher

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"trade-ledger/internal/fills"
	"trade-ledger/internal/types"
)

type Result struct {
	Trips     []types.RoundTrip
	Unmatched []types.UnmatchedFill
	// DefaultMultiplier lists symbols priced with the fallback multiplier.
	DefaultMultiplier []string
}

type Matcher struct {
	mult    Multipliers
	workers int
}

// New returns a matcher. workers bounds how many symbols are matched at once;
// symbols share no state so any value gives the same result.
func New(mult Multipliers, workers int) *Matcher {
	if workers < 1 {
		workers = 1
	}
	return &Matcher{mult: mult, workers: workers}
}

type symbolResult struct {
	trips     []types.RoundTrip
	unmatched []types.UnmatchedFill
	defaulted bool
}

// Match groups fills by symbol and matches each symbol independently. Output
// is ordered by symbol, then by match order, regardless of input order.
func (m *Matcher) Match(ctx context.Context, batch []types.Fill) (Result, error) {
	bySymbol := make(map[string][]types.Fill)
	for _, f := range batch {
		bySymbol[f.Symbol] = append(bySymbol[f.Symbol], f)
	}
	symbols := make([]string, 0, len(bySymbol))
	for s := range bySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	results := make([]symbolResult, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = m.matchSymbol(sym, bySymbol[sym])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	var out Result
	for i, r := range results {
		out.Trips = append(out.Trips, r.trips...)
		out.Unmatched = append(out.Unmatched, r.unmatched...)
		if r.defaulted && len(r.trips) > 0 {
			out.DefaultMultiplier = append(out.DefaultMultiplier, symbols[i])
		}
	}
	return out, nil
}

func (m *Matcher) matchSymbol(symbol string, symFills []types.Fill) symbolResult {
	sorted := append([]types.Fill(nil), symFills...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Time.Equal(sorted[j].Time) {
			return sorted[i].Time.Before(sorted[j].Time)
		}
		return sorted[i].Seq < sorted[j].Seq
	})

	var buys, sells fifo
	for _, f := range sorted {
		if f.Quantity > 0 {
			buys.push(fills.Expand(f)...)
		} else {
			sells.push(fills.Expand(f)...)
		}
	}

	mult, defaulted := m.mult.Lookup(symbol)
	res := symbolResult{defaulted: defaulted}
	for buys.len() > 0 && sells.len() > 0 {
		res.trips = append(res.trips, pair(buys.pop(), sells.pop(), mult))
	}
	res.unmatched = append(summarize(symbol, buys.rest()), summarize(symbol, sells.rest())...)
	return res
}

// pair builds a round trip. The earlier fill is the entry: a buy at or before
// the sell is Long, otherwise the position was opened by the sell and is Short.
func pair(buy, sell types.SingleUnitFill, mult decimal.Decimal) types.RoundTrip {
	fees := buy.FeePerUnit.Add(sell.FeePerUnit)
	rt := types.RoundTrip{Symbol: buy.Symbol, Size: 1}

	if !buy.Time.After(sell.Time) {
		rt.Direction = types.Long
		rt.EnteredAt, rt.ExitedAt = buy.Time, sell.Time
		rt.EntryPrice, rt.ExitPrice = buy.Price, sell.Price
	} else {
		rt.Direction = types.Short
		rt.EnteredAt, rt.ExitedAt = sell.Time, buy.Time
		rt.EntryPrice, rt.ExitPrice = sell.Price, buy.Price
	}

	// long: exit-entry = sell-buy; short: entry-exit = sell-buy
	points := sell.Price.Sub(buy.Price)
	rt.PnL = points.Mul(mult).Sub(fees).Round(2)
	rt.Fees = fees.Round(2)
	rt.Duration = rt.ExitedAt.Sub(rt.EnteredAt)
	return rt
}

// summarize collapses leftover units that came from the same fill.
func summarize(symbol string, rest []types.SingleUnitFill) []types.UnmatchedFill {
	var out []types.UnmatchedFill
	for i, u := range rest {
		if i > 0 && u.Seq == rest[i-1].Seq {
			out[len(out)-1].Count++
			continue
		}
		out = append(out, types.UnmatchedFill{
			Symbol: symbol,
			Side:   u.Side,
			Time:   u.Time,
			Price:  u.Price,
			Count:  1,
		})
	}
	return out
}
