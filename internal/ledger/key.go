package ledger

import (
	"strconv"
	"strings"
	"time"

	"trade-ledger/internal/types"
)

// StableKey identifies a trade independently of its derived results. Fees,
// pnl, duration, streak, comment and the per-day index are left out: they
// either follow from the other fields or depend on the rest of the history.
func StableKey(r types.LedgerRow) string {
	return strings.Join([]string{
		r.YearMonth,
		r.TradeDay,
		r.DayOfWeek,
		strconv.Itoa(r.HourOfDay),
		r.Symbol,
		r.EnteredAt.UTC().Format(time.RFC3339Nano),
		r.ExitedAt.UTC().Format(time.RFC3339Nano),
		r.EntryPrice.String(),
		r.ExitPrice.String(),
		strconv.Itoa(r.Size),
		string(r.Direction),
		strconv.Itoa(r.WinOrLoss),
	}, "|")
}
