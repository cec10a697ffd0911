package data

import "macro-stress/internal/model"

// FetchError represents an error from an upstream data provider.
type FetchError struct {
	Source     string // "fred", "yahoo", "fomc"
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // For rate limit errors
}

func (e *FetchError) Error() string {
	return e.Source + ": " + e.Message
}

// Unwrap lets callers test for model.ErrDataUnavailable.
func (e *FetchError) Unwrap() error {
	return model.ErrDataUnavailable
}
