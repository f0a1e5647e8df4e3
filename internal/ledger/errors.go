package ledger

import "errors"

var (
	// ErrNoOp marks a zero-quantity award: nothing is stored, the caller
	// shows a notice and moves on.
	ErrNoOp = errors.New("zero-point award, nothing recorded")

	// ErrNotFound marks a student or category that does not resolve within
	// the actor's school. Recoverable; no row is written.
	ErrNotFound = errors.New("not found in school scope")
)
