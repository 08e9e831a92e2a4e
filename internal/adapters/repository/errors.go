package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("configuration not computed")
	ErrInvalidLimit = errors.New("invalid leaderboard limit")
	ErrEmptyHash    = errors.New("empty configuration hash")
	ErrUnknownTeam  = errors.New("team not found")
	ErrSaveFailed   = errors.New("save rating entry")

	ErrUnknownBackend = errors.New("unknown store backend")
)
