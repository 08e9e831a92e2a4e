// Package rating holds the per-team rating state and the ELO update math.
package rating

import "sort"

// DefaultRating is assigned to a team on first sight.
const DefaultRating = 1500.0

// Store maps team identifiers to their current rating. Unknown teams are
// registered with the default rating on first access. A Store belongs to a
// single pipeline run and is not safe for concurrent use.
type Store struct {
	initial float64
	ratings map[string]float64
}

// NewStore creates an empty store whose teams start at initial. A
// non-positive initial falls back to DefaultRating.
func NewStore(initial float64) *Store {
	if initial <= 0 {
		initial = DefaultRating
	}
	return &Store{initial: initial, ratings: make(map[string]float64)}
}

// Get returns the team's rating, registering it at the default if unseen.
func (s *Store) Get(team string) float64 {
	r, ok := s.ratings[team]
	if !ok {
		r = s.initial
		s.ratings[team] = r
	}
	return r
}

// Peek returns the team's rating without registering it.
func (s *Store) Peek(team string) (float64, bool) {
	r, ok := s.ratings[team]
	return r, ok
}

// Set overwrites the team's rating.
func (s *Store) Set(team string, r float64) {
	s.ratings[team] = r
}

// Len returns the number of registered teams.
func (s *Store) Len() int { return len(s.ratings) }

// Teams returns all registered teams sorted by name.
func (s *Store) Teams() []string {
	teams := make([]string, 0, len(s.ratings))
	for t := range s.ratings {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}

// Initial returns the rating assigned to unseen teams.
func (s *Store) Initial() float64 { return s.initial }
