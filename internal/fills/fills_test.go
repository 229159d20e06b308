package fills

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"trade-ledger/internal/types"
)

func newYorkNormalizer(t *testing.T, symbols ...string) *Normalizer {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return NewNormalizer(Options{
		SourceLocation: loc,
		Layouts:        []string{"20060102;150405"},
		Symbols:        symbols,
	})
}

func TestParseMoney(t *testing.T) {
	cases := map[string]string{
		"$1,234.50": "1234.5",
		"(12.75)":   "-12.75",
		"($3.10)":   "-3.1",
		"-$3":       "-3",
		" 0.62 ":    "0.62",
		"105":       "105",
	}
	for in, want := range cases {
		got, err := ParseMoney(in)
		if err != nil {
			t.Errorf("ParseMoney(%q) returned error: %v", in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("ParseMoney(%q): expected %s, got %s", in, want, got)
		}
	}

	if _, err := ParseMoney("abc"); err == nil {
		t.Error("Expected error for non-numeric amount")
	}
	if _, err := ParseMoney(""); !errors.Is(err, errEmptyAmount) {
		t.Errorf("Expected errEmptyAmount for empty input, got %v", err)
	}
}

func TestNormalizeRow(t *testing.T) {
	n := newYorkNormalizer(t)
	f, err := n.NormalizeRow(0, types.RawFill{
		Symbol:                         "MESH5",
		DateTime:                       "20250103;093000",
		Quantity:                       "-3",
		Price:                          "5,950.25",
		BrokerExecutionCommission:      "-0.25",
		ThirdPartyExecutionCommission:  "(0.35)",
		ThirdPartyRegulatoryCommission: "0.02",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	wantTime := time.Date(2025, 1, 3, 14, 30, 0, 0, time.UTC)
	if !f.Time.Equal(wantTime) {
		t.Errorf("Expected time %v, got %v", wantTime, f.Time)
	}
	if f.Quantity != -3 || f.Side() != types.Sell {
		t.Errorf("Expected sell of 3, got quantity %d side %s", f.Quantity, f.Side())
	}
	if !f.Price.Equal(decimal.RequireFromString("5950.25")) {
		t.Errorf("Expected price 5950.25, got %s", f.Price)
	}
	if !f.TotalFee.Equal(decimal.RequireFromString("0.62")) {
		t.Errorf("Expected total fee 0.62, got %s", f.TotalFee)
	}
}

func TestNormalizeDropsMalformedRows(t *testing.T) {
	n := newYorkNormalizer(t)
	rows := []types.RawFill{
		{Symbol: "MES", DateTime: "20250103;093000", Quantity: "1", Price: "100"},
		{Symbol: "MES", DateTime: "not a time", Quantity: "1", Price: "100"},
		{Symbol: "MES", DateTime: "20250103;093100", Quantity: "1", Price: "n/a"},
		{Symbol: "MES", DateTime: "20250103;093200", Quantity: "0", Price: "100"},
		{Symbol: "", DateTime: "20250103;093300", Quantity: "1", Price: "100"},
		{Symbol: "MES", DateTime: "20250103;093400", Quantity: "1.5", Price: "100"},
	}

	res := n.Normalize(rows)
	if len(res.Fills) != 1 {
		t.Fatalf("Expected 1 valid fill, got %d", len(res.Fills))
	}
	if res.Malformed != 5 {
		t.Errorf("Expected 5 malformed rows, got %d", res.Malformed)
	}
	if len(res.Issues) != 5 || res.Issues[0].Row != 2 {
		t.Errorf("Expected issues starting at row 2, got %+v", res.Issues)
	}
	for _, is := range res.Issues {
		if !strings.Contains(is.Reason, ErrMalformedRecord.Error()) {
			t.Errorf("Expected reason to wrap ErrMalformedRecord, got %q", is.Reason)
		}
	}
}

func TestNormalizeSymbolFilter(t *testing.T) {
	n := newYorkNormalizer(t, "mes")
	res := n.Normalize([]types.RawFill{
		{Symbol: "MES", DateTime: "20250103;093000", Quantity: "1", Price: "100"},
		{Symbol: "MNQ", DateTime: "20250103;093000", Quantity: "1", Price: "100"},
	})
	if len(res.Fills) != 1 || res.Fills[0].Symbol != "MES" {
		t.Errorf("Expected only MES to pass the filter, got %+v", res.Fills)
	}
	if res.Filtered != 1 || res.Malformed != 0 {
		t.Errorf("Expected 1 filtered and 0 malformed, got %d and %d", res.Filtered, res.Malformed)
	}
}

func TestNormalizeUpperCasesSymbol(t *testing.T) {
	n := newYorkNormalizer(t, "MES")
	res := n.Normalize([]types.RawFill{
		{Symbol: " mes ", DateTime: "20250103;093000", Quantity: "1", Price: "100"},
		{Symbol: "Mes", DateTime: "20250103;093100", Quantity: "-1", Price: "101"},
	})
	if len(res.Fills) != 2 {
		t.Fatalf("Expected 2 fills, got %d", len(res.Fills))
	}
	for _, f := range res.Fills {
		if f.Symbol != "MES" {
			t.Errorf("Expected symbol MES, got %q", f.Symbol)
		}
	}
}

func TestNormalizeKeepsExplicitOffset(t *testing.T) {
	n := newYorkNormalizer(t)
	f, err := n.NormalizeRow(0, types.RawFill{
		Symbol: "MES", DateTime: "2025-01-03T09:30:00Z", Quantity: "1", Price: "100",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if f.Time.Hour() != 9 {
		t.Errorf("Expected 09:00 UTC to be kept, got %v", f.Time)
	}
}

func TestExpandConservesFees(t *testing.T) {
	n := newYorkNormalizer(t)
	f, err := n.NormalizeRow(0, types.RawFill{
		Symbol:                    "MES",
		DateTime:                  "20250103;093000",
		Quantity:                  "3",
		Price:                     "100",
		BrokerExecutionCommission: "1.00",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	units := Expand(f)
	if len(units) != 3 {
		t.Fatalf("Expected 3 units, got %d", len(units))
	}
	sum := decimal.Zero
	for _, u := range units {
		if u.Side != types.Buy {
			t.Errorf("Expected BUY unit, got %s", u.Side)
		}
		sum = sum.Add(u.FeePerUnit)
	}
	if diff := sum.Sub(f.TotalFee).Abs(); diff.GreaterThan(decimal.New(1, -9)) {
		t.Errorf("Expected unit fees to sum to %s, got %s", f.TotalFee, sum)
	}
}

func TestReadCSV(t *testing.T) {
	in := "\ufeffSymbol,Date/Time,Quantity,Price,BrokerExecutionCommission,ThirdPartyExecutionCommission,ThirdPartyRegulatoryCommission,TradeDate,Extra\n" +
		"MES,20250103;093000,2,100,-0.5,-0.4,-0.1,20250103,x\n" +
		"MES,20250103;094000,-2,105,-0.5,-0.4,-0.1,20250103,y\n"

	rows, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[1].Quantity != "-2" || rows[1].ThirdPartyRegulatoryCommission != "-0.1" {
		t.Errorf("Unexpected second row: %+v", rows[1])
	}

	empty, err := ReadCSV(strings.NewReader("  \n"))
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected empty batch without error, got %d rows and %v", len(empty), err)
	}
}
