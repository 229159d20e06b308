package ledger

import (
	"fmt"
	"time"

	"trade-ledger/internal/interfaces"
	"trade-ledger/internal/store"
)

// Open returns the store for the configured backend.
func Open(backend, path string, loc *time.Location) (interfaces.LedgerStore, error) {
	switch backend {
	case store.BackendCSV:
		return NewCSVStore(path, loc), nil
	case store.BackendSQLite:
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}
