// Package stepsize maps a tournament context to an ELO step size.
package stepsize

import "strings"

// Rule associates a keyword with the K-factor it selects.
type Rule struct {
	Keyword string
	K       float64
}

// DefaultRules is the ordered keyword table. Earlier rules win.
func DefaultRules() []Rule {
	return []Rule{
		{"worlds", 32},
		{"world_championship", 32},
		{"msi", 32},
		{"mid-season_invitational", 32},
		{"playoffs", 28},
		{"finals", 28},
		{"championship", 28},
		{"regular_season", 24},
		{"regular", 24},
		{"first_stand", 20},
		{"promotion", 20},
	}
}

// Selector resolves the K-factor for a (tournament, stage) pair.
type Selector struct {
	rules    []Rule
	baseline float64
}

// NewSelector creates a selector falling back to baseline when no rule
// matches. A nil rules slice uses DefaultRules.
func NewSelector(baseline float64, rules []Rule) *Selector {
	if rules == nil {
		rules = DefaultRules()
	}
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		normalized[i] = Rule{Keyword: normalize(r.Keyword), K: r.K}
	}
	return &Selector{rules: normalized, baseline: baseline}
}

// KFor returns the K-factor for a match. The tournament name is scanned
// against the whole table before the stage is.
func (s *Selector) KFor(tournament, stage string) float64 {
	if k, ok := s.match(normalize(tournament)); ok {
		return k
	}
	if k, ok := s.match(normalize(stage)); ok {
		return k
	}
	return s.baseline
}

// Baseline returns the fallback K-factor.
func (s *Selector) Baseline() float64 { return s.baseline }

func (s *Selector) match(text string) (float64, bool) {
	if text == "" {
		return 0, false
	}
	for _, r := range s.rules {
		if strings.Contains(text, r.Keyword) {
			return r.K, true
		}
	}
	return 0, false
}

// normalize lowercases and joins words with underscores so "World
// Championship" matches the "world_championship" keyword.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}
