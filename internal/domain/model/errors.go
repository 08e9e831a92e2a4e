package model

import "errors"

// Sentinel kinds for invalid match records.
var (
	ErrMissingTeam   = errors.New("match is missing a team")
	ErrSameTeam      = errors.New("match pits a team against itself")
	ErrNegativeScore = errors.New("match has a negative score")
	ErrTiedScore     = errors.New("match ended in a tie")
)
