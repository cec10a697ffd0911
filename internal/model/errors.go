package model

import "errors"

// Error kinds surfaced by the pipeline. Callers wrap these with context using %w,
// so errors.Is works at the process boundary.
var (
	// ErrMissingConfiguration means a required credential or environment value is absent.
	ErrMissingConfiguration = errors.New("missing configuration")
	// ErrDataUnavailable means an upstream fetch or parse failed.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInsufficientHistory means there are too few observations for the requested lag order.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrShockColumnMissing means the shock column is not part of the modeled columns.
	ErrShockColumnMissing = errors.New("shock column missing")
)
