package matcher

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Multipliers maps an instrument to its contract point value. Keys may be a
// full symbol ("MESH5") or a root ("MES"); the longest matching key wins.
type Multipliers struct {
	Default  decimal.Decimal
	BySymbol map[string]decimal.Decimal
}

func NewMultipliers(def float64, bySymbol map[string]float64) Multipliers {
	m := Multipliers{
		Default:  decimal.NewFromFloat(def),
		BySymbol: make(map[string]decimal.Decimal, len(bySymbol)),
	}
	for k, v := range bySymbol {
		m.BySymbol[strings.ToUpper(k)] = decimal.NewFromFloat(v)
	}
	return m
}

// Lookup returns the multiplier for symbol and whether the default was used.
func (m Multipliers) Lookup(symbol string) (decimal.Decimal, bool) {
	s := strings.ToUpper(symbol)
	best := ""
	for k := range m.BySymbol {
		if strings.HasPrefix(s, k) && len(k) > len(best) {
			best = k
		}
	}
	if best == "" {
		return m.Default, true
	}
	return m.BySymbol[best], false
}
