// Package ledger owns the persisted performance ledger: the stable row key,
// the idempotent merge and the CSV and SQLite backends.
package ledger

import (
	"sort"

	"trade-ledger/internal/types"
)

type MergeResult struct {
	Rows       []types.LedgerRow
	Appended   int
	Duplicates int
}

// Merge appends the incoming rows whose stable key is not already present.
// Existing rows are kept as they are, including any duplicates between them.
// The result is ordered by entry time.
func Merge(existing, incoming []types.LedgerRow) MergeResult {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, r := range existing {
		seen[StableKey(r)] = struct{}{}
	}

	res := MergeResult{Rows: make([]types.LedgerRow, 0, len(existing)+len(incoming))}
	res.Rows = append(res.Rows, existing...)
	for _, r := range incoming {
		k := StableKey(r)
		if _, ok := seen[k]; ok {
			res.Duplicates++
			continue
		}
		seen[k] = struct{}{}
		res.Rows = append(res.Rows, r)
		res.Appended++
	}
	SortRows(res.Rows)
	return res
}

// SortRows orders rows by entry time, then exit time and symbol.
func SortRows(rows []types.LedgerRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.EnteredAt.Equal(b.EnteredAt) {
			return a.EnteredAt.Before(b.EnteredAt)
		}
		if !a.ExitedAt.Equal(b.ExitedAt) {
			return a.ExitedAt.Before(b.ExitedAt)
		}
		return a.Symbol < b.Symbol
	})
}
