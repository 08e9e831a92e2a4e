package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RegionTable maps team identifiers to regions.
type RegionTable struct {
	regions map[string]string
}

// NewRegionTable builds a table from an in-memory mapping.
func NewRegionTable(m map[string]string) *RegionTable {
	t := &RegionTable{regions: make(map[string]string, len(m))}
	for team, region := range m {
		team, region = strings.TrimSpace(team), strings.TrimSpace(region)
		if team != "" && region != "" {
			t.regions[team] = region
		}
	}
	return t
}

// LoadRegions reads a team to region mapping from a YAML/JSON object or a
// two-column (team, region) CSV file.
func LoadRegions(path string) (*RegionTable, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open regions: %w", err)
	}
	defer func() { _ = fh.Close() }()

	m := map[string]string{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		cr := csv.NewReader(fh)
		cr.FieldsPerRecord = 2
		cr.TrimLeadingSpace = true
		for {
			row, err := cr.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrParse, err)
			}
			if strings.EqualFold(row[0], "team") {
				continue
			}
			m[row[0]] = row[1]
		}
	case ".yaml", ".yml", ".json":
		if err := yaml.NewDecoder(fh).Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %v", ErrParse, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return NewRegionTable(m), nil
}

// Region implements pipeline.RegionLookup.
func (t *RegionTable) Region(team string) (string, bool) {
	r, ok := t.regions[team]
	return r, ok
}

// Len returns the number of mapped teams.
func (t *RegionTable) Len() int { return len(t.regions) }
