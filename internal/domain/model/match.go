// Package model contains domain records passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Match is one decided series between two teams. Matches are immutable and
// must be fed to the pipeline in ascending Date order.
type Match struct {
	Team1      string    `json:"team1" yaml:"team1"`
	Team2      string    `json:"team2" yaml:"team2"`
	Score1     int       `json:"score1" yaml:"score1"`
	Score2     int       `json:"score2" yaml:"score2"`
	Date       time.Time `json:"date" yaml:"date"`
	Tournament string    `json:"tournament" yaml:"tournament"`
	Stage      string    `json:"stage" yaml:"stage"`
}

// Validate reports whether m can be folded into a rating trajectory.
// Ties are reported with ErrTiedScore so callers can tell a precondition
// violation apart from noise in the feed.
func (m Match) Validate() error {
	switch {
	case strings.TrimSpace(m.Team1) == "" || strings.TrimSpace(m.Team2) == "":
		return ErrMissingTeam
	case m.Team1 == m.Team2:
		return fmt.Errorf("%w: %s", ErrSameTeam, m.Team1)
	case m.Score1 < 0 || m.Score2 < 0:
		return fmt.Errorf("%w: %d-%d", ErrNegativeScore, m.Score1, m.Score2)
	case m.Score1 == m.Score2:
		return fmt.Errorf("%w: %s %d-%d %s", ErrTiedScore, m.Team1, m.Score1, m.Score2, m.Team2)
	}
	return nil
}

// Team1Won reports whether Team1 took the series. Only meaningful on a
// validated match.
func (m Match) Team1Won() bool { return m.Score1 > m.Score2 }

// Winner returns the winning and losing team.
func (m Match) Winner() (winner, loser string) {
	if m.Team1Won() {
		return m.Team1, m.Team2
	}
	return m.Team2, m.Team1
}

// ScoreLine returns the literal "winner-loser" score key, e.g. "3-1".
func (m Match) ScoreLine() string {
	if m.Team1Won() {
		return fmt.Sprintf("%d-%d", m.Score1, m.Score2)
	}
	return fmt.Sprintf("%d-%d", m.Score2, m.Score1)
}

// Margin returns the absolute series score difference.
func (m Match) Margin() int {
	if m.Score1 > m.Score2 {
		return m.Score1 - m.Score2
	}
	return m.Score2 - m.Score1
}

// Key identifies a match record for deduplication. The team pair is ordered
// so that a series reported from either side yields the same key.
func (m Match) Key() string {
	a, b, sa, sb := m.Team1, m.Team2, m.Score1, m.Score2
	if b < a {
		a, b, sa, sb = b, a, sb, sa
	}
	return strings.Join([]string{
		m.Date.UTC().Format(time.RFC3339),
		a, b,
		fmt.Sprintf("%d-%d", sa, sb),
		m.Tournament, m.Stage,
	}, "|")
}
