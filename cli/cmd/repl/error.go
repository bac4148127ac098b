package repl

import "errors"

// Sentinel errors.
var (
	ErrOutOfBounds  = errors.New("index out of range")
	ErrEditDeclined = errors.New("decline edit")
	ErrNoRunner     = errors.New("session has no runner")
	ErrNoEntry      = errors.New("session declares no main method")
)
