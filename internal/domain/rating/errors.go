package rating

import "errors"

// Sentinel kinds for rating errors.
var (
	ErrInvalidKFactor = errors.New("k-factor must be a positive finite number")
	ErrNonFinite      = errors.New("rating update is not finite")
)
