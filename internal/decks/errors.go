package decks

import "errors"

// ErrDeckNotFound and ErrPrecondition model the registry's integrity and
// precondition error cases.
var (
	ErrDeckNotFound = errors.New("deck not found")
	ErrPrecondition = errors.New("precondition violation")
)
