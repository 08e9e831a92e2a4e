package repository

import (
	"time"

	"github.com/okian/riftelo/internal/domain/model"
)

// TrajectoryPoint is one team's state right after one processed match.
type TrajectoryPoint struct {
	Team          string    `json:"team"`
	MatchIndex    int       `json:"match_index"`
	Rating        float64   `json:"elo_value"`
	MatchesPlayed int       `json:"matches_played"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	Date          time.Time `json:"date"`
}

// TrajectoryPoints flattens snapshots into two points per match, team1
// first, in history order.
func TrajectoryPoints(history []model.Snapshot) []TrajectoryPoint {
	out := make([]TrajectoryPoint, 0, 2*len(history))
	for _, snap := range history {
		for _, side := range [2]model.Side{snap.Team1, snap.Team2} {
			out = append(out, TrajectoryPoint{
				Team:          side.Team,
				MatchIndex:    snap.Index,
				Rating:        side.RatingAfter,
				MatchesPlayed: side.Wins + side.Losses,
				Wins:          side.Wins,
				Losses:        side.Losses,
				Date:          snap.Date,
			})
		}
	}
	return out
}

// TeamTrajectory keeps only team's points.
func TeamTrajectory(points []TrajectoryPoint, team string) []TrajectoryPoint {
	var out []TrajectoryPoint
	for _, p := range points {
		if p.Team == team {
			out = append(out, p)
		}
	}
	return out
}

// LatestStandings reduces points to each team's standing at its highest
// match index.
func LatestStandings(points []TrajectoryPoint) map[string]model.TeamStanding {
	latest := make(map[string]TrajectoryPoint, len(points))
	for _, p := range points {
		if cur, ok := latest[p.Team]; ok && cur.MatchIndex > p.MatchIndex {
			continue
		}
		latest[p.Team] = p
	}
	out := make(map[string]model.TeamStanding, len(latest))
	for team, p := range latest {
		out[team] = model.TeamStanding{
			Rating:        p.Rating,
			MatchesPlayed: p.MatchesPlayed,
			Wins:          p.Wins,
			Losses:        p.Losses,
			LastPlayed:    p.Date,
		}
	}
	return out
}
