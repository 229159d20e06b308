package fills

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var errEmptyAmount = errors.New("empty amount")

var moneyCleaner = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "", " ", "")

// ParseMoney parses broker money text such as "$1,234.50", "(12.75)" or
// "-$3". Parentheses mean negative.
func ParseMoney(s string) (decimal.Decimal, error) {
	v := moneyCleaner.Replace(strings.TrimSpace(s))
	if v == "" {
		return decimal.Zero, errEmptyAmount
	}
	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}
