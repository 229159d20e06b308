package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Fill is one normalized broker execution. Quantity is signed: positive buys,
// negative sells.
type Fill struct {
	Time       time.Time
	Symbol     string
	Quantity   int
	Price      decimal.Decimal
	TotalFee   decimal.Decimal
	FeePerUnit decimal.Decimal
	// Seq is the row position in the source batch, used to keep equal
	// timestamps in input order.
	Seq int
}

func (f Fill) Side() Side {
	if f.Quantity > 0 {
		return Buy
	}
	return Sell
}

// SingleUnitFill is one contract unit of a Fill. It never leaves the matcher.
type SingleUnitFill struct {
	Time       time.Time
	Symbol     string
	Side       Side
	Price      decimal.Decimal
	FeePerUnit decimal.Decimal
	Seq        int
}

type RoundTrip struct {
	Symbol     string
	EnteredAt  time.Time
	ExitedAt   time.Time
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	Fees       decimal.Decimal
	PnL        decimal.Decimal
	Direction  Direction
	Size       int
	Duration   time.Duration
}

// CoalescedTrade is a group of round trips with identical timing, prices and
// direction. TradeIndex is 1-based within the trade day.
type CoalescedTrade struct {
	RoundTrip
	TradeIndex int
}

// LedgerRow is one persisted ledger line.
type LedgerRow struct {
	CoalescedTrade
	TradeDay  string // 2006-01-02 in the ledger timezone
	DayOfWeek string
	HourOfDay int
	YearMonth string // 2006-01
	WinOrLoss int    // +1 win, -1 loss or flat
	Streak    int
	Comment   string
}

// UnmatchedFill summarizes single-unit fills left in one queue after matching.
// Consecutive units from the same fill collapse into one entry with Count.
type UnmatchedFill struct {
	Symbol string          `json:"symbol"`
	Side   Side            `json:"side"`
	Time   time.Time       `json:"time"`
	Price  decimal.Decimal `json:"price"`
	Count  int             `json:"count"`
}

// RowIssue describes one dropped input row.
type RowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// RunSummary is reported to the caller after every pipeline run.
type RunSummary struct {
	RunID             string          `json:"run_id"`
	Source            string          `json:"source,omitempty"`
	RowsIn            int             `json:"rows_in"`
	RowsDropped       int             `json:"rows_dropped"`
	RowsFiltered      int             `json:"rows_filtered"`
	RoundTrips        int             `json:"round_trips"`
	TradesProduced    int             `json:"trades_produced"`
	TradesAppended    int             `json:"trades_appended"`
	TradesDuplicate   int             `json:"trades_duplicate"`
	LedgerRows        int             `json:"ledger_rows"`
	UnmatchedCount    int             `json:"unmatched_count"`
	Unmatched         []UnmatchedFill `json:"unmatched,omitempty"`
	Issues            []RowIssue      `json:"issues,omitempty"`
	DefaultMultiplier []string        `json:"default_multiplier_symbols,omitempty"`
	SnapshotPath      string          `json:"snapshot_path,omitempty"`
	Empty             bool            `json:"empty"`
}

// FillBatch is one closed set of raw fill rows.
type FillBatch struct {
	Source string
	Rows   []RawFill
}

// RawFill mirrors one row of the broker's trade confirmation export. All
// fields stay textual until the normalizer has looked at them.
type RawFill struct {
	Symbol                         string `csv:"Symbol"`
	DateTime                       string `csv:"Date/Time"`
	TradeDate                      string `csv:"TradeDate"`
	Quantity                       string `csv:"Quantity"`
	Price                          string `csv:"Price"`
	BrokerExecutionCommission      string `csv:"BrokerExecutionCommission"`
	ThirdPartyExecutionCommission  string `csv:"ThirdPartyExecutionCommission"`
	ThirdPartyRegulatoryCommission string `csv:"ThirdPartyRegulatoryCommission"`
}
