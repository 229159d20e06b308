// Package annotate derives calendar fields, per-day indices and win/loss
// streaks for coalesced trades.
package annotate

import (
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"trade-ledger/internal/coalesce"
	"trade-ledger/internal/types"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// Seed carries streak state from trades already in the ledger. The zero Seed
// starts a fresh run.
type Seed struct {
	Sign int
	Run  int
}

type Annotator struct {
	loc *time.Location
}

func New(loc *time.Location) *Annotator {
	if loc == nil {
		loc = time.UTC
	}
	return &Annotator{loc: loc}
}

// Sign is +1 for a winning trade and -1 otherwise; flat trades count as losses.
func Sign(pnl decimal.Decimal) int {
	if pnl.IsPositive() {
		return 1
	}
	return -1
}

// Annotate walks trades once in entry order.
func (a *Annotator) Annotate(trades []types.CoalescedTrade, seed Seed) []types.LedgerRow {
	sorted := append([]types.CoalescedTrade(nil), trades...)
	coalesce.Sort(sorted)

	rows := make([]types.LedgerRow, 0, len(sorted))
	perDay := make(map[string]int)
	prev, run := seed.Sign, seed.Run
	for _, t := range sorted {
		local := t.EnteredAt.In(a.loc)
		day := local.Format(DayLayout)
		perDay[day]++

		sign := Sign(t.PnL)
		if run == 0 || sign != prev {
			run = 1
		} else {
			run++
		}
		prev = sign

		t.TradeIndex = perDay[day]
		rows = append(rows, types.LedgerRow{
			CoalescedTrade: t,
			TradeDay:       day,
			DayOfWeek:      local.Weekday().String(),
			HourOfDay:      local.Hour(),
			YearMonth:      local.Format(MonthLayout),
			WinOrLoss:      sign,
			Streak:         run * sign,
		})
	}
	return rows
}

// SeedFrom returns the streak state of the latest ledger row entered strictly
// before the given instant.
func SeedFrom(rows []types.LedgerRow, before time.Time) Seed {
	var last *types.LedgerRow
	for i := range rows {
		r := &rows[i]
		if !r.EnteredAt.Before(before) {
			continue
		}
		if last == nil || r.EnteredAt.After(last.EnteredAt) {
			last = r
		}
	}
	if last == nil || last.Streak == 0 {
		return Seed{}
	}
	run := last.Streak
	if run < 0 {
		run = -run
	}
	return Seed{Sign: Sign(last.PnL), Run: run}
}
