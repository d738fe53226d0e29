package engine

import "errors"

// ErrClosed is returned by any operation on a closed engine.
var ErrClosed = errors.New("engine: closed")

// ErrInvalidOptions indicates Options failed validation on Open.
var ErrInvalidOptions = errors.New("engine: invalid options")

// ErrValueTooLarge indicates a value's length collides with the
// tombstone sentinel, per spec.md §9.
var ErrValueTooLarge = errors.New("engine: value too large")
