package ledger

import "errors"

var (
	ErrLedgerRead   = errors.New("ledger read failure")
	ErrLedgerWrite  = errors.New("ledger write failure")
	ErrLedgerLocked = errors.New("ledger is locked by another run")
)
