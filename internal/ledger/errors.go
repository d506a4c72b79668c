package ledger

import "errors"

var (
	// ErrLedgerUnavailable means a ledger could not be assembled; callers
	// should offer a retry instead of showing partial data.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrLineNotFound means the id is not part of the session.
	ErrLineNotFound = errors.New("line not found")
	ErrInvalidKind  = errors.New("invalid line kind")
)
