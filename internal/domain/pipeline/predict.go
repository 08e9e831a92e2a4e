package pipeline

import (
	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/internal/domain/offset"
	"github.com/okian/riftelo/internal/domain/rating"
)

// Predict forecasts team1 against team2 from a finished trajectory. Teams
// absent from ratings are treated as unseen at initial. Offsets are applied
// only when both regions are known and differ.
func Predict(ratings map[string]model.TeamStanding, offsets map[string]model.RegionOffset, regions RegionLookup, initial float64, team1, team2 string) model.Prediction {
	if regions == nil {
		regions = NoRegions{}
	}
	if initial <= 0 {
		initial = rating.DefaultRating
	}
	r1, r2 := initial, initial
	if st, ok := ratings[team1]; ok {
		r1 = st.Rating
	}
	if st, ok := ratings[team2]; ok {
		r2 = st.Rating
	}

	var o1, o2 float64
	reg1, _ := regions.Region(team1)
	reg2, _ := regions.Region(team2)
	if len(offsets) > 0 && offset.Applies(reg1, reg2) {
		o1, o2 = offsets[reg1].Offset, offsets[reg2].Offset
	}

	p1 := rating.Expected(r1+o1, r2+o2)
	favorite := team1
	if p1 < 0.5 {
		favorite = team2
	}
	return model.Prediction{
		Team1: team1, Team2: team2,
		Rating1: r1, Rating2: r2,
		Offset1: o1, Offset2: o2,
		Probability1: p1,
		Favorite:     favorite,
	}
}
