package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"trade-ledger/internal/types"
)

// TimeLayout is how EnteredAt and ExitedAt are written, in the ledger timezone.
// Sub-second digits are only written when present, so a time read back equals
// the one that was written.
const TimeLayout = "2006-01-02 15:04:05.999999999-07:00"

var readLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// record is one ledger line as it appears on disk. Columns keep the names the
// dashboard and analytics already read.
type record struct {
	YearMonth     string `csv:"YearMonth"`
	TradeDay      string `csv:"TradeDay"`
	DayOfWeek     string `csv:"DayOfWeek"`
	HourOfDay     string `csv:"HourOfDay"`
	ContractName  string `csv:"ContractName"`
	IntradayIndex string `csv:"IntradayIndex"`
	EnteredAt     string `csv:"EnteredAt"`
	ExitedAt      string `csv:"ExitedAt"`
	EntryPrice    string `csv:"EntryPrice"`
	ExitPrice     string `csv:"ExitPrice"`
	Fees          string `csv:"Fees"`
	PnL           string `csv:"PnL(Net)"`
	Size          string `csv:"Size"`
	Type          string `csv:"Type"`
	TradeDuration string `csv:"TradeDuration"`
	WinOrLoss     string `csv:"WinOrLoss"`
	Streak        string `csv:"Streak"`
	Comment       string `csv:"Comment"`
}

// WriteCSV writes rows in ledger column order, rendering times in loc.
func WriteCSV(w io.Writer, rows []types.LedgerRow, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	recs := make([]record, len(rows))
	for i, r := range rows {
		recs[i] = record{
			YearMonth:     r.YearMonth,
			TradeDay:      r.TradeDay,
			DayOfWeek:     r.DayOfWeek,
			HourOfDay:     strconv.Itoa(r.HourOfDay),
			ContractName:  r.Symbol,
			IntradayIndex: strconv.Itoa(r.TradeIndex),
			EnteredAt:     r.EnteredAt.In(loc).Format(TimeLayout),
			ExitedAt:      r.ExitedAt.In(loc).Format(TimeLayout),
			EntryPrice:    r.EntryPrice.String(),
			ExitPrice:     r.ExitPrice.String(),
			Fees:          r.Fees.StringFixed(2),
			PnL:           r.PnL.StringFixed(2),
			Size:          strconv.Itoa(r.Size),
			Type:          string(r.Direction),
			TradeDuration: FormatDuration(r.Duration),
			WinOrLoss:     strconv.Itoa(r.WinOrLoss),
			Streak:        strconv.Itoa(r.Streak),
			Comment:       r.Comment,
		}
	}
	return gocsv.Marshal(recs, w)
}

// ReadCSV parses a ledger. Naive timestamps are read in loc. Any row that
// cannot be parsed fails the whole read: rewriting a ledger with rows missing
// would lose history.
func ReadCSV(r io.Reader, loc *time.Location) ([]types.LedgerRow, error) {
	if loc == nil {
		loc = time.UTC
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	b = bytes.TrimPrefix(b, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}

	var recs []record
	if err := gocsv.Unmarshal(bytes.NewReader(b), &recs); err != nil {
		return nil, err
	}
	rows := make([]types.LedgerRow, 0, len(recs))
	for i, rec := range recs {
		row, err := rec.toRow(loc)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (rec record) toRow(loc *time.Location) (types.LedgerRow, error) {
	var (
		row types.LedgerRow
		err error
	)
	p := &fieldParser{}

	row.Symbol = strings.TrimSpace(rec.ContractName)
	if row.Symbol == "" {
		return row, errors.New("missing ContractName")
	}
	row.EnteredAt = p.time("EnteredAt", rec.EnteredAt, loc)
	row.ExitedAt = p.time("ExitedAt", rec.ExitedAt, loc)
	row.EntryPrice = p.decimal("EntryPrice", rec.EntryPrice)
	row.ExitPrice = p.decimal("ExitPrice", rec.ExitPrice)
	row.Fees = p.decimal("Fees", rec.Fees)
	row.PnL = p.decimal("PnL(Net)", rec.PnL)
	row.Size = p.int("Size", rec.Size)
	row.TradeIndex = p.int("IntradayIndex", rec.IntradayIndex)
	row.HourOfDay = p.int("HourOfDay", rec.HourOfDay)
	row.WinOrLoss = p.int("WinOrLoss", rec.WinOrLoss)
	row.Streak = p.int("Streak", rec.Streak)
	if p.err != nil {
		return row, p.err
	}

	switch d := types.Direction(strings.TrimSpace(rec.Type)); d {
	case types.Long, types.Short:
		row.Direction = d
	default:
		return row, fmt.Errorf("unknown direction %q in Type", rec.Type)
	}

	if strings.TrimSpace(rec.TradeDuration) == "" {
		row.Duration = row.ExitedAt.Sub(row.EnteredAt)
	} else if row.Duration, err = ParseDuration(rec.TradeDuration); err != nil {
		return row, fmt.Errorf("TradeDuration: %w", err)
	}

	row.YearMonth = rec.YearMonth
	row.TradeDay = rec.TradeDay
	row.DayOfWeek = rec.DayOfWeek
	row.Comment = rec.Comment
	return row, nil
}

// fieldParser keeps the first error so toRow can read every column in a row
// before checking.
type fieldParser struct {
	err error
}

func (p *fieldParser) fail(col, val string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s %q: %v", col, val, err)
	}
}

func (p *fieldParser) time(col, val string, loc *time.Location) time.Time {
	s := strings.TrimSpace(val)
	for _, layout := range readLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t
		}
	}
	p.fail(col, val, errors.New("unrecognized timestamp"))
	return time.Time{}
}

func (p *fieldParser) decimal(col, val string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(val))
	if err != nil {
		p.fail(col, val, err)
	}
	return d
}

// int accepts "3" as well as "3.0", which spreadsheet round trips produce.
func (p *fieldParser) int(col, val string) int {
	s := strings.TrimSpace(val)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		p.fail(col, val, errors.New("not an integer"))
		return 0
	}
	return int(d.IntPart())
}

// FormatDuration renders d as "N days HH:MM:SS".
func FormatDuration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign, d = "-", -d
	}
	secs := int64(d / time.Second)
	frac := int64(d % time.Second)
	days := secs / 86400
	secs %= 86400
	out := fmt.Sprintf("%s%d days %02d:%02d:%02d", sign, days, secs/3600, secs%3600/60, secs%60)
	if frac > 0 {
		out += "." + strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	}
	return out
}

// ParseDuration reads "N days HH:MM:SS[.fraction]" and falls back to Go
// duration syntax.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	body := strings.TrimPrefix(s, "-")

	dayPart, clock, ok := strings.Cut(body, " days ")
	if !ok {
		dayPart, clock, ok = strings.Cut(body, " day ")
	}
	if !ok {
		return time.ParseDuration(s)
	}
	days, err := strconv.Atoi(dayPart)
	if err != nil {
		return 0, fmt.Errorf("days %q: %w", dayPart, err)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("clock %q: want HH:MM:SS", clock)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("hours %q: %w", parts[0], err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("minutes %q: %w", parts[1], err)
	}
	sec, err := parseSeconds(parts[2])
	if err != nil {
		return 0, fmt.Errorf("seconds %q: %w", parts[2], err)
	}
	d := time.Duration(days)*24*time.Hour +
		time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		sec
	if neg {
		d = -d
	}
	return d, nil
}

// parseSeconds reads "SS[.fraction]" exactly, up to nanoseconds.
func parseSeconds(s string) (time.Duration, error) {
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.Atoi(whole)
	if err != nil {
		return 0, err
	}
	d := time.Duration(n) * time.Second
	if frac == "" {
		return d, nil
	}
	if len(frac) > 9 {
		frac = frac[:9]
	}
	ns, err := strconv.Atoi(frac + strings.Repeat("0", 9-len(frac)))
	if err != nil {
		return 0, err
	}
	return d + time.Duration(ns), nil
}
