package validation

import "errors"

// Sentinel kinds for validation errors.
var (
	ErrInvalidFolds     = errors.New("fold count must be at least 2")
	ErrNotEnoughMatches = errors.New("not enough matches")
)
