package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/pkg/logger"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rating_configs (
	config_hash           TEXT PRIMARY KEY,
	run_id                TEXT NOT NULL,
	variant               TEXT NOT NULL,
	k_factor              DOUBLE PRECISION NOT NULL,
	use_scale_factors     BOOLEAN NOT NULL,
	scale_factors         JSONB NOT NULL DEFAULT '{}'::jsonb,
	use_regional_offsets  BOOLEAN NOT NULL,
	config                JSONB NOT NULL,
	offsets               JSONB NOT NULL DEFAULT '{}'::jsonb,
	processed             INTEGER NOT NULL,
	skipped               INTEGER NOT NULL,
	computed_at           TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS rating_snapshots (
	config_hash     TEXT NOT NULL REFERENCES rating_configs(config_hash) ON DELETE CASCADE,
	team            TEXT NOT NULL,
	rating          DOUBLE PRECISION NOT NULL,
	matches_played  INTEGER NOT NULL,
	wins            INTEGER NOT NULL,
	losses          INTEGER NOT NULL,
	last_played     TIMESTAMPTZ,
	PRIMARY KEY (config_hash, team)
);
CREATE TABLE IF NOT EXISTS rating_history (
	config_hash  TEXT NOT NULL REFERENCES rating_configs(config_hash) ON DELETE CASCADE,
	idx          INTEGER NOT NULL,
	snapshot     JSONB NOT NULL,
	PRIMARY KEY (config_hash, idx)
);
CREATE TABLE IF NOT EXISTS rating_trajectory (
	config_hash     TEXT NOT NULL REFERENCES rating_configs(config_hash) ON DELETE CASCADE,
	team            TEXT NOT NULL,
	match_index     INTEGER NOT NULL,
	elo_value       DOUBLE PRECISION NOT NULL,
	matches_played  INTEGER NOT NULL,
	wins            INTEGER NOT NULL,
	losses          INTEGER NOT NULL,
	date            TIMESTAMPTZ,
	PRIMARY KEY (config_hash, team, match_index)
);`

// PostgresStore persists entries across four tables: the configuration row,
// final standings, per-match snapshots and the per-team trajectory with one
// row for every team in every processed match. Save runs in one
// transaction so a replaced configuration is never half visible.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewPostgresStore opens dsn, verifies the connection and creates the
// schema unless disabled.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s, err := NewPostgresStoreFromDB(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing handle.
func NewPostgresStoreFromDB(ctx context.Context, db *sql.DB, opts ...Option) (*PostgresStore, error) {
	o := buildOptions(opts)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if o.initSchema {
		if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
			return nil, fmt.Errorf("initialize schema: %w", err)
		}
	}
	o.logger.Info(ctx, "postgres store ready", logger.Bool("schema_init", o.initSchema))
	return &PostgresStore{db: db, logger: o.logger}, nil
}

// Lookup implements Store.
func (s *PostgresStore) Lookup(ctx context.Context, hash string) (Entry, error) {
	start := time.Now()
	defer observe("lookup", start)

	e := Entry{ConfigHash: hash}
	var cfgRaw, offRaw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, config, offsets, processed, skipped, computed_at
		   FROM rating_configs WHERE config_hash = $1`, hash,
	).Scan(&e.RunID, &cfgRaw, &offRaw, &e.Processed, &e.Skipped, &e.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("query config: %w", err)
	}
	if err := json.Unmarshal(cfgRaw, &e.Config); err != nil {
		return Entry{}, fmt.Errorf("decode config: %w", err)
	}
	if err := json.Unmarshal(offRaw, &e.Offsets); err != nil {
		return Entry{}, fmt.Errorf("decode offsets: %w", err)
	}
	if e.Ratings, err = s.ratings(ctx, hash); err != nil {
		return Entry{}, err
	}
	if e.History, err = s.history(ctx, hash); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (s *PostgresStore) ratings(ctx context.Context, hash string) (map[string]model.TeamStanding, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team, rating, matches_played, wins, losses, last_played
		   FROM rating_snapshots WHERE config_hash = $1`, hash)
	if err != nil {
		return nil, fmt.Errorf("query ratings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := map[string]model.TeamStanding{}
	for rows.Next() {
		var (
			team string
			st   model.TeamStanding
			last pq.NullTime
		)
		if err := rows.Scan(&team, &st.Rating, &st.MatchesPlayed, &st.Wins, &st.Losses, &last); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		if last.Valid {
			st.LastPlayed = last.Time.UTC()
		}
		out[team] = st
	}
	return out, rows.Err()
}

func (s *PostgresStore) history(ctx context.Context, hash string) ([]model.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT snapshot FROM rating_history WHERE config_hash = $1 ORDER BY idx`, hash)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Snapshot
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		var snap model.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, e Entry) (err error) {
	if e.ConfigHash == "" {
		return ErrEmptyHash
	}
	start := time.Now()
	defer observe("save", start)

	cfgRaw, err := json.Marshal(e.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	scales := e.Config.ScaleFactors
	if scales == nil {
		scales = map[string]float64{}
	}
	scalesRaw, err := json.Marshal(scales)
	if err != nil {
		return fmt.Errorf("encode scale factors: %w", err)
	}
	offsets := e.Offsets
	if offsets == nil {
		offsets = map[string]model.RegionOffset{}
	}
	offRaw, err := json.Marshal(offsets)
	if err != nil {
		return fmt.Errorf("encode offsets: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", ErrSaveFailed, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM rating_configs WHERE config_hash = $1`, e.ConfigHash); err != nil {
		return fmt.Errorf("%w: delete previous: %w", ErrSaveFailed, err)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO rating_configs (config_hash, run_id, variant, k_factor, use_scale_factors, scale_factors,
		                             use_regional_offsets, config, offsets, processed, skipped, computed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ConfigHash, e.RunID, e.Config.Variant, e.Config.KFactor, e.Config.UseScaleFactors, scalesRaw,
		e.Config.UseRegionalOffsets, cfgRaw, offRaw, e.Processed, e.Skipped, e.ComputedAt.UTC(),
	); err != nil {
		return fmt.Errorf("%w: insert config: %w", ErrSaveFailed, err)
	}
	if err = copyRatings(ctx, tx, e); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err = copyHistory(ctx, tx, e); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err = copyTrajectory(ctx, tx, e); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrSaveFailed, err)
	}
	return nil
}

func copyRatings(ctx context.Context, tx *sql.Tx, e Entry) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("rating_snapshots",
		"config_hash", "team", "rating", "matches_played", "wins", "losses", "last_played"))
	if err != nil {
		return fmt.Errorf("prepare ratings copy: %w", err)
	}
	for team, st := range e.Ratings {
		var last any
		if !st.LastPlayed.IsZero() {
			last = st.LastPlayed.UTC()
		}
		if _, err := stmt.ExecContext(ctx, e.ConfigHash, team, st.Rating, st.MatchesPlayed, st.Wins, st.Losses, last); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy rating %s: %w", team, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush ratings copy: %w", err)
	}
	return stmt.Close()
}

func copyHistory(ctx context.Context, tx *sql.Tx, e Entry) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("rating_history", "config_hash", "idx", "snapshot"))
	if err != nil {
		return fmt.Errorf("prepare history copy: %w", err)
	}
	for i, snap := range e.History {
		raw, err := json.Marshal(snap)
		if err != nil {
			_ = stmt.Close()
			return fmt.Errorf("encode snapshot %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ConfigHash, i, string(raw)); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy snapshot %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush history copy: %w", err)
	}
	return stmt.Close()
}

func copyTrajectory(ctx context.Context, tx *sql.Tx, e Entry) error {
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("rating_trajectory",
		"config_hash", "team", "match_index", "elo_value", "matches_played", "wins", "losses", "date"))
	if err != nil {
		return fmt.Errorf("prepare trajectory copy: %w", err)
	}
	for _, p := range TrajectoryPoints(e.History) {
		var date any
		if !p.Date.IsZero() {
			date = p.Date.UTC()
		}
		if _, err := stmt.ExecContext(ctx, e.ConfigHash, p.Team, p.MatchIndex, p.Rating, p.MatchesPlayed, p.Wins, p.Losses, date); err != nil {
			_ = stmt.Close()
			return fmt.Errorf("copy trajectory %s@%d: %w", p.Team, p.MatchIndex, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush trajectory copy: %w", err)
	}
	return stmt.Close()
}

// Trajectory returns team's rating after each of its processed matches in
// hash, oldest first.
func (s *PostgresStore) Trajectory(ctx context.Context, hash, team string) ([]TrajectoryPoint, error) {
	start := time.Now()
	defer observe("trajectory", start)

	rows, err := s.db.QueryContext(ctx,
		`SELECT team, match_index, elo_value, matches_played, wins, losses, date
		   FROM rating_trajectory WHERE config_hash = $1 AND team = $2
		  ORDER BY match_index`, hash, team)
	if err != nil {
		return nil, fmt.Errorf("query trajectory: %w", err)
	}
	return scanTrajectory(rows)
}

// LatestRatings rebuilds every team's latest standing of hash from the
// trajectory table.
func (s *PostgresStore) LatestRatings(ctx context.Context, hash string) (map[string]model.TeamStanding, error) {
	start := time.Now()
	defer observe("latest", start)

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT ON (team) team, match_index, elo_value, matches_played, wins, losses, date
		   FROM rating_trajectory WHERE config_hash = $1
		  ORDER BY team, match_index DESC`, hash)
	if err != nil {
		return nil, fmt.Errorf("query latest ratings: %w", err)
	}
	points, err := scanTrajectory(rows)
	if err != nil {
		return nil, err
	}
	return LatestStandings(points), nil
}

func scanTrajectory(rows *sql.Rows) ([]TrajectoryPoint, error) {
	defer func() { _ = rows.Close() }()
	var out []TrajectoryPoint
	for rows.Next() {
		var (
			p    TrajectoryPoint
			date pq.NullTime
		)
		if err := rows.Scan(&p.Team, &p.MatchIndex, &p.Rating, &p.MatchesPlayed, &p.Wins, &p.Losses, &date); err != nil {
			return nil, fmt.Errorf("scan trajectory: %w", err)
		}
		if date.Valid {
			p.Date = date.Time.UTC()
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete implements Store. Child rows go with the cascade.
func (s *PostgresStore) Delete(ctx context.Context, hash string) error {
	start := time.Now()
	defer observe("delete", start)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM rating_configs WHERE config_hash = $1`, hash); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	return nil
}

// Hashes implements Store.
func (s *PostgresStore) Hashes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config_hash FROM rating_configs ORDER BY config_hash`)
	if err != nil {
		return nil, fmt.Errorf("query hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan hash: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *PostgresStore) Close() error { return s.db.Close() }
