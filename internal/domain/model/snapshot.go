package model

import "time"

// Side captures one team's state around a single match.
type Side struct {
	Team          string  `json:"team"`
	Region        string  `json:"region,omitempty"`
	RatingBefore  float64 `json:"rating_before"`
	RatingAfter   float64 `json:"rating_after"`
	OffsetApplied float64 `json:"offset_applied"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
}

// Snapshot is the audit record appended after each processed match.
type Snapshot struct {
	Index           int       `json:"index"`
	Input           int       `json:"input"`
	Date            time.Time `json:"date"`
	Tournament      string    `json:"tournament"`
	Stage           string    `json:"stage"`
	Team1           Side      `json:"team1"`
	Team2           Side      `json:"team2"`
	Score1          int       `json:"score1"`
	Score2          int       `json:"score2"`
	KFactor         float64   `json:"k_factor"`
	ScaleFactor     float64   `json:"scale_factor"`
	Expected1       float64   `json:"expected1"`
	PredictedWinner string    `json:"predicted_winner"`
	ActualWinner    string    `json:"actual_winner"`
	Correct         bool      `json:"correct"`
	CorrectSoFar    int       `json:"correct_so_far"`
	PredictedSoFar  int       `json:"predicted_so_far"`
}

// TeamStanding is the output view of one team after a full trajectory.
type TeamStanding struct {
	Rating        float64   `json:"rating"`
	MatchesPlayed int       `json:"matches_played"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	LastPlayed    time.Time `json:"last_played"`
}

// RegionOffset is the learned state of one region.
type RegionOffset struct {
	Offset     float64 `json:"offset"`
	Confidence float64 `json:"confidence"`
}

// RankedTeam is a leaderboard row.
type RankedTeam struct {
	Rank int    `json:"rank"`
	Team string `json:"team"`
	TeamStanding
}

// Prediction is the forecast for a future matchup.
type Prediction struct {
	Team1        string  `json:"team1"`
	Team2        string  `json:"team2"`
	Rating1      float64 `json:"rating1"`
	Rating2      float64 `json:"rating2"`
	Offset1      float64 `json:"offset1"`
	Offset2      float64 `json:"offset2"`
	Probability1 float64 `json:"probability1"`
	Favorite     string  `json:"favorite"`
}
