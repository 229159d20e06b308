//go:build !unix

package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Lock falls back to an exclusive-create lock file where flock is not
// available. A crashed run leaves the file behind and it must be removed by
// hand.
func Lock(path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, ErrLedgerLocked
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	_ = f.Close()
	return func() error { return os.Remove(lockPath) }, nil
}
