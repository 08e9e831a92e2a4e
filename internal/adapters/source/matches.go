// Package source reads match histories and team regions from local files
// exported by the scraper.
package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/riftelo/internal/domain/dedupe"
	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/pkg/logger"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var matchColumns = []string{"team1", "team2", "score1", "score2", "date", "tournament", "stage"}

// record is a raw row. Scores stay strings so unparsable rows can be
// skipped instead of failing the whole file.
type record struct {
	Team1      string `yaml:"team1"`
	Team2      string `yaml:"team2"`
	Score1     string `yaml:"score1"`
	Score2     string `yaml:"score2"`
	Date       string `yaml:"date"`
	Tournament string `yaml:"tournament"`
	Stage      string `yaml:"stage"`
}

// FileMatches is a match-history provider backed by a CSV, YAML or JSON
// file. It drops duplicate records and returns matches sorted by date.
type FileMatches struct {
	path    string
	logger  logger.Logger
	deduper func() dedupe.Deduper
}

// NewFileMatches creates a provider for path.
func NewFileMatches(path string, opts ...Option) *FileMatches {
	f := &FileMatches{
		path:    path,
		deduper: func() dedupe.Deduper { return dedupe.NewInMemoryDeduper() },
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.Get().Named("source")
	}
	return f
}

// Matches reads the whole file.
func (f *FileMatches) Matches(ctx context.Context) ([]model.Match, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open match history: %w", err)
	}
	defer func() { _ = fh.Close() }()

	var records []record
	switch ext := strings.ToLower(filepath.Ext(f.path)); ext {
	case ".csv":
		records, err = readCSV(fh)
	case ".yaml", ".yml", ".json":
		records, err = readYAML(fh)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	matches := make([]model.Match, 0, len(records))
	for i, r := range records {
		m, err := r.toMatch()
		if err != nil {
			f.logger.Warn(ctx, "skipping unparsable match record",
				logger.Int("row", i),
				logger.String("path", f.path),
				logger.Error(err),
			)
			continue
		}
		matches = append(matches, m)
	}

	matches, dropped := dedupe.Matches(ctx, f.deduper(), matches)
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Date.Before(matches[j].Date) })

	f.logger.Info(ctx, "match history loaded",
		logger.String("path", f.path),
		logger.Int("records", len(records)),
		logger.Int("matches", len(matches)),
		logger.Int("duplicates", dropped),
	)
	return matches, nil
}

func (r record) toMatch() (model.Match, error) {
	s1, err := strconv.Atoi(strings.TrimSpace(r.Score1))
	if err != nil {
		return model.Match{}, fmt.Errorf("%w: score1 %q", ErrParse, r.Score1)
	}
	s2, err := strconv.Atoi(strings.TrimSpace(r.Score2))
	if err != nil {
		return model.Match{}, fmt.Errorf("%w: score2 %q", ErrParse, r.Score2)
	}
	date, err := parseDate(r.Date)
	if err != nil {
		return model.Match{}, err
	}
	return model.Match{
		Team1:      strings.TrimSpace(r.Team1),
		Team2:      strings.TrimSpace(r.Team2),
		Score1:     s1,
		Score2:     s2,
		Date:       date,
		Tournament: strings.TrimSpace(r.Tournament),
		Stage:      strings.TrimSpace(r.Stage),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: date %q", ErrParse, s)
}

func readYAML(r io.Reader) ([]record, error) {
	var records []record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return records, nil
}

// readCSV expects a header row naming the columns in matchColumns, in any
// order.
func readCSV(r io.Reader) ([]record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: header: %v", ErrParse, err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range matchColumns[:4] {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrParse, col)
		}
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var records []record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
		records = append(records, record{
			Team1:      get(row, "team1"),
			Team2:      get(row, "team2"),
			Score1:     get(row, "score1"),
			Score2:     get(row, "score2"),
			Date:       get(row, "date"),
			Tournament: get(row, "tournament"),
			Stage:      get(row, "stage"),
		})
	}
	return records, nil
}
