package variant

import "errors"

// Sentinel kinds for configuration errors.
var (
	ErrUnknownVariant     = errors.New("unknown rating variant")
	ErrInvalidKFactor     = errors.New("k-factor must be a positive finite number")
	ErrInvalidScaleFactor = errors.New("scale factor must be a non-negative finite number")
	ErrInvalidTuning      = errors.New("tuning parameter must be a non-negative finite number")
)
