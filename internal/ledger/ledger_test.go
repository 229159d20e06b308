package ledger

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade-ledger/internal/types"
)

func central(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("US/Central")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func row(loc *time.Location, entered time.Time, pnl string, streak int) types.LedgerRow {
	local := entered.In(loc)
	sign := 1
	if !decimal.RequireFromString(pnl).IsPositive() {
		sign = -1
	}
	return types.LedgerRow{
		CoalescedTrade: types.CoalescedTrade{
			RoundTrip: types.RoundTrip{
				Symbol:     "MESH5",
				EnteredAt:  entered,
				ExitedAt:   entered.Add(10 * time.Minute),
				EntryPrice: decimal.RequireFromString("5950.25"),
				ExitPrice:  decimal.RequireFromString("5952.5"),
				Fees:       decimal.RequireFromString("1.24"),
				PnL:        decimal.RequireFromString(pnl),
				Direction:  types.Long,
				Size:       2,
				Duration:   10 * time.Minute,
			},
			TradeIndex: 1,
		},
		TradeDay:  local.Format("2006-01-02"),
		DayOfWeek: local.Weekday().String(),
		HourOfDay: local.Hour(),
		YearMonth: local.Format("2006-01"),
		WinOrLoss: sign,
		Streak:    streak,
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	loc := central(t)
	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	batch := []types.LedgerRow{row(loc, base, "21.26", 1), row(loc, base.Add(time.Hour), "-3", -1)}

	once := Merge(nil, batch)
	if once.Appended != 2 || once.Duplicates != 0 {
		t.Fatalf("Expected 2 appended, got %d appended %d duplicates", once.Appended, once.Duplicates)
	}
	twice := Merge(once.Rows, batch)
	if twice.Appended != 0 || twice.Duplicates != 2 {
		t.Errorf("Expected 0 appended and 2 duplicates, got %d and %d", twice.Appended, twice.Duplicates)
	}
	if len(twice.Rows) != len(once.Rows) {
		t.Errorf("Expected ledger to stay at %d rows, got %d", len(once.Rows), len(twice.Rows))
	}
}

func TestMergeIgnoresDerivedFields(t *testing.T) {
	loc := central(t)
	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	existing := row(loc, base, "21.26", 1)

	again := existing
	again.Streak = 4
	again.TradeIndex = 3
	again.Fees = decimal.RequireFromString("9.99")
	again.PnL = decimal.RequireFromString("12.51")
	again.Duration = time.Hour
	again.Comment = "revisited"

	res := Merge([]types.LedgerRow{existing}, []types.LedgerRow{again})
	if res.Appended != 0 || len(res.Rows) != 1 {
		t.Errorf("Expected derived-only difference to be a duplicate, got %d appended", res.Appended)
	}
	if res.Rows[0].Comment != "" {
		t.Errorf("Expected existing row to be kept unchanged, got comment %q", res.Rows[0].Comment)
	}
}

func TestMergeOverlappingBatches(t *testing.T) {
	loc := central(t)
	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	a := row(loc, base, "1", 1)
	b := row(loc, base.Add(time.Hour), "2", 2)
	c := row(loc, base.Add(2*time.Hour), "3", 3)

	union := Merge(nil, []types.LedgerRow{a, b, c}).Rows
	split := Merge(Merge(nil, []types.LedgerRow{b, c}).Rows, []types.LedgerRow{a, b}).Rows

	if len(union) != len(split) {
		t.Fatalf("Expected %d rows, got %d", len(union), len(split))
	}
	for i := range union {
		if StableKey(union[i]) != StableKey(split[i]) {
			t.Errorf("Row %d differs: %s vs %s", i, StableKey(union[i]), StableKey(split[i]))
		}
	}
	if !split[0].EnteredAt.Equal(base) {
		t.Errorf("Expected merged ledger ordered by entry time, first row %v", split[0].EnteredAt)
	}
}

func TestMergeDistinguishesPrices(t *testing.T) {
	loc := central(t)
	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	a := row(loc, base, "1", 1)
	b := a
	b.ExitPrice = decimal.RequireFromString("5953")

	res := Merge([]types.LedgerRow{a}, []types.LedgerRow{b})
	if res.Appended != 1 {
		t.Errorf("Expected a different exit price to be a new trade, got %d appended", res.Appended)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	loc := central(t)
	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	in := []types.LedgerRow{row(loc, base, "21.26", 1), row(loc, base.Add(26*time.Hour), "-3.5", -1)}
	in[1].Comment = "late, fat finger"
	in[1].Duration = 26*time.Hour + 5*time.Second

	var buf bytes.Buffer
	if err := WriteCSV(&buf, in, loc); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	header := strings.SplitN(buf.String(), "\n", 2)[0]
	want := "YearMonth,TradeDay,DayOfWeek,HourOfDay,ContractName,IntradayIndex,EnteredAt,ExitedAt,EntryPrice,ExitPrice,Fees,PnL(Net),Size,Type,TradeDuration,WinOrLoss,Streak,Comment"
	if header != want {
		t.Errorf("Expected header %q, got %q", want, header)
	}
	if !strings.Contains(buf.String(), "2025-01-06 09:00:00-06:00") {
		t.Errorf("Expected entry time in ledger timezone, got:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "1 days 02:00:05") {
		t.Errorf("Expected duration 1 days 02:00:05, got:\n%s", buf.String())
	}

	out, err := ReadCSV(&buf, loc)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("Expected %d rows, got %d", len(in), len(out))
	}
	for i := range in {
		if StableKey(in[i]) != StableKey(out[i]) {
			t.Errorf("Row %d key changed: %s vs %s", i, StableKey(in[i]), StableKey(out[i]))
		}
		if !in[i].PnL.Equal(out[i].PnL) || in[i].Streak != out[i].Streak || in[i].Duration != out[i].Duration {
			t.Errorf("Row %d values changed: %+v vs %+v", i, in[i], out[i])
		}
	}
	if out[1].Comment != "late, fat finger" {
		t.Errorf("Expected comment to survive quoting, got %q", out[1].Comment)
	}
}

func TestReadCSVRejectsCorruptRows(t *testing.T) {
	in := "YearMonth,TradeDay,DayOfWeek,HourOfDay,ContractName,IntradayIndex,EnteredAt,ExitedAt,EntryPrice,ExitPrice,Fees,PnL(Net),Size,Type,TradeDuration,WinOrLoss,Streak,Comment\n" +
		"2025-01,2025-01-06,Monday,9,MES,1,yesterday,2025-01-06 09:10:00-06:00,100,101,1,4,1,Long,0 days 00:10:00,1,1,\n"
	if _, err := ReadCSV(strings.NewReader(in), time.UTC); err == nil {
		t.Error("Expected error for unparseable EnteredAt")
	}
}

func TestDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"0 days 00:10:00":        10 * time.Minute,
		"2 days 01:00:30":        49*time.Hour + 30*time.Second,
		"0 days 00:00:01.500000": 1500 * time.Millisecond,
		"1 day 00:00:00":         24 * time.Hour,
		"90s":                    90 * time.Second,
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil {
			t.Errorf("ParseDuration(%q) returned error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseDuration(%q): expected %v, got %v", in, want, got)
		}
	}
	if got := FormatDuration(49*time.Hour + 30*time.Second); got != "2 days 01:00:30" {
		t.Errorf("Expected 2 days 01:00:30, got %s", got)
	}

	for _, d := range []time.Duration{
		10*time.Minute + 500*time.Millisecond,
		123456789 * time.Nanosecond,
		-(3*time.Second + 250*time.Millisecond),
	} {
		back, err := ParseDuration(FormatDuration(d))
		if err != nil || back != d {
			t.Errorf("Expected %v to round-trip, got %v (%v) from %q", d, back, err, FormatDuration(d))
		}
	}
}

func TestSubSecondTimesRoundTrip(t *testing.T) {
	loc := central(t)
	r := row(loc, time.Date(2025, 1, 6, 14, 0, 0, 250*int(time.Millisecond), time.UTC), "10", 1)
	r.ExitedAt = r.ExitedAt.Add(500 * time.Millisecond)
	r.Duration = r.ExitedAt.Sub(r.EnteredAt)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, []types.LedgerRow{r}, loc); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(buf.String(), "2025-01-06 08:00:00.25-06:00") {
		t.Errorf("Expected fractional entry time in output, got:\n%s", buf.String())
	}
	got, err := ReadCSV(&buf, loc)
	if err != nil || len(got) != 1 {
		t.Fatalf("Expected 1 row without error, got %d and %v", len(got), err)
	}
	if StableKey(got[0]) != StableKey(r) {
		t.Errorf("Expected stable key to survive the file:\n%s\nvs\n%s", StableKey(r), StableKey(got[0]))
	}
}

func TestCSVStore(t *testing.T) {
	loc := central(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "performance", "ledger.csv")
	s := NewCSVStore(path, loc)

	rows, err := s.Load(ctx)
	if err != nil || len(rows) != 0 {
		t.Fatalf("Expected empty ledger for a missing file, got %d rows and %v", len(rows), err)
	}

	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	if err := s.Replace(ctx, []types.LedgerRow{row(loc, base, "5", 1)}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	rows, err = s.Load(ctx)
	if err != nil || len(rows) != 1 {
		t.Fatalf("Expected 1 row after replace, got %d and %v", len(rows), err)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("Expected only the ledger file to remain, got %d entries", len(entries))
	}

	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if rows, err := s.Load(ctx); err != nil || len(rows) != 0 {
		t.Errorf("Expected empty file to load as empty ledger, got %d rows and %v", len(rows), err)
	}

	if err := os.WriteFile(path, []byte("ContractName,EnteredAt\nMES,garbage\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx); !errors.Is(err, ErrLedgerRead) {
		t.Errorf("Expected ErrLedgerRead, got %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	loc := central(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer s.Close()

	base := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	in := []types.LedgerRow{row(loc, base, "21.26", 1), row(loc, base.Add(time.Hour), "-3", -1)}
	if err := s.Replace(ctx, in); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := s.Replace(ctx, in[:1]); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("Expected replace to leave 1 row, got %d", len(out))
	}
	if StableKey(out[0]) != StableKey(in[0]) || !out[0].PnL.Equal(in[0].PnL) || out[0].Duration != in[0].Duration {
		t.Errorf("Expected row to survive storage, got %+v", out[0])
	}
}

func TestLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	unlock, err := Lock(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := Lock(path); !errors.Is(err, ErrLedgerLocked) {
		t.Errorf("Expected ErrLedgerLocked while held, got %v", err)
	}
	if err := unlock(); err != nil {
		t.Fatalf("Expected no error on unlock, got %v", err)
	}
	unlock, err = Lock(path)
	if err != nil {
		t.Fatalf("Expected lock to be free again, got %v", err)
	}
	_ = unlock()
}
