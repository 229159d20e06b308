package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trade-ledger/internal/types"
)

// CSVStore keeps the ledger as one CSV file, rewritten whole on every merge.
type CSVStore struct {
	path string
	loc  *time.Location
}

func NewCSVStore(path string, loc *time.Location) *CSVStore {
	return &CSVStore{path: path, loc: loc}
}

func (s *CSVStore) Path() string { return s.path }

// Load returns an empty ledger when the file does not exist yet.
func (s *CSVStore) Load(ctx context.Context) ([]types.LedgerRow, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerRead, err)
	}
	defer f.Close()

	rows, err := ReadCSV(f, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLedgerRead, s.path, err)
	}
	return rows, nil
}

// Replace writes the ledger to a temp file next to the target and renames it
// into place, so readers never observe a half-written ledger.
func (s *CSVStore) Replace(ctx context.Context, rows []types.LedgerRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := atomicWrite(s.path, rows, s.loc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrLedgerWrite, s.path, err)
	}
	return nil
}

func (s *CSVStore) Close() error { return nil }

func atomicWrite(path string, rows []types.LedgerRow, loc *time.Location) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := WriteCSV(tmp, rows, loc); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
