package repository

import (
	"sort"

	"github.com/okian/riftelo/internal/domain/model"
)

// Rank orders ratings best first. Equal ratings fall back to team name
// ascending so the order is deterministic.
func Rank(ratings map[string]model.TeamStanding) []model.RankedTeam {
	out := make([]model.RankedTeam, 0, len(ratings))
	for team, st := range ratings {
		out = append(out, model.RankedTeam{Team: team, TeamStanding: st})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Team < out[j].Team
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// TopN returns the first n ranked teams. n must be positive.
func TopN(ratings map[string]model.TeamStanding, n int) ([]model.RankedTeam, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	ranked := Rank(ratings)
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// RankOf returns a single team's ranked row.
func RankOf(ratings map[string]model.TeamStanding, team string) (model.RankedTeam, error) {
	if _, ok := ratings[team]; !ok {
		return model.RankedTeam{}, ErrUnknownTeam
	}
	for _, r := range Rank(ratings) {
		if r.Team == team {
			return r, nil
		}
	}
	return model.RankedTeam{}, ErrUnknownTeam
}
