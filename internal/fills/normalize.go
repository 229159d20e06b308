// Package fills turns raw broker rows into typed fills and expands them into
// single contract units for the matcher.
package fills

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"trade-ledger/internal/types"
)

// ErrMalformedRecord marks a row that cannot be turned into a Fill. The row is
// dropped and counted; the rest of the batch continues.
var ErrMalformedRecord = errors.New("malformed fill record")

// Layouts tried after the configured ones.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

type Options struct {
	SourceLocation *time.Location
	Layouts        []string
	// Symbols restricts the batch to these instruments when non-empty.
	Symbols []string
}

type Result struct {
	Fills     []types.Fill
	Malformed int
	Filtered  int
	Issues    []types.RowIssue
}

type Normalizer struct {
	loc     *time.Location
	layouts []string
	allow   map[string]bool
}

func NewNormalizer(opts Options) *Normalizer {
	loc := opts.SourceLocation
	if loc == nil {
		loc = time.UTC
	}
	n := &Normalizer{
		loc:     loc,
		layouts: append(append([]string{}, opts.Layouts...), fallbackLayouts...),
	}
	if len(opts.Symbols) > 0 {
		n.allow = make(map[string]bool, len(opts.Symbols))
		for _, s := range opts.Symbols {
			n.allow[strings.ToUpper(strings.TrimSpace(s))] = true
		}
	}
	return n
}

// Normalize converts every row it can and reports the rest. Row numbers in
// issues are 1-based data rows, not counting the header.
func (n *Normalizer) Normalize(rows []types.RawFill) Result {
	res := Result{Fills: make([]types.Fill, 0, len(rows))}
	for i, row := range rows {
		f, err := n.NormalizeRow(i, row)
		if err != nil {
			res.Malformed++
			res.Issues = append(res.Issues, types.RowIssue{Row: i + 1, Reason: err.Error()})
			continue
		}
		if n.allow != nil && !n.allow[f.Symbol] {
			res.Filtered++
			continue
		}
		res.Fills = append(res.Fills, f)
	}
	return res
}

func (n *Normalizer) NormalizeRow(seq int, row types.RawFill) (types.Fill, error) {
	symbol := strings.ToUpper(strings.TrimSpace(row.Symbol))
	if symbol == "" {
		return types.Fill{}, fmt.Errorf("%w: missing symbol", ErrMalformedRecord)
	}

	ts, err := n.parseTime(row.DateTime)
	if err != nil {
		return types.Fill{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	qty, err := parseQuantity(row.Quantity)
	if err != nil {
		return types.Fill{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	price, err := ParseMoney(row.Price)
	if err != nil {
		return types.Fill{}, fmt.Errorf("%w: price: %v", ErrMalformedRecord, err)
	}

	total := decimal.Zero
	for _, c := range []string{
		row.BrokerExecutionCommission,
		row.ThirdPartyExecutionCommission,
		row.ThirdPartyRegulatoryCommission,
	} {
		fee, err := ParseMoney(c)
		if errors.Is(err, errEmptyAmount) {
			continue
		}
		if err != nil {
			return types.Fill{}, fmt.Errorf("%w: commission: %v", ErrMalformedRecord, err)
		}
		// brokers report commissions as debits; only the magnitude is a cost
		total = total.Add(fee.Abs())
	}

	return types.Fill{
		Time:       ts,
		Symbol:     symbol,
		Quantity:   qty,
		Price:      price,
		TotalFee:   total,
		FeePerUnit: total.Div(decimal.NewFromInt(int64(abs(qty)))),
		Seq:        seq,
	}, nil
}

func (n *Normalizer) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing timestamp")
	}
	for _, layout := range n.layouts {
		// ParseInLocation keeps an explicit offset when the text carries one
		if t, err := time.ParseInLocation(layout, s, n.loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseQuantity(s string) (int, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, fmt.Errorf("quantity %q: %w", s, err)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("quantity %q is not a whole number of contracts", s)
	}
	if d.IsZero() {
		return 0, errors.New("zero quantity")
	}
	return int(d.IntPart()), nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
