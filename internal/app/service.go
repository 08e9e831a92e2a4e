// Package service provides the result cache behind the HTTP API: it
// computes rating trajectories per configuration, stores them by
// fingerprint and serves ratings, history, leaderboards, predictions and
// cross-validation from the stored results.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/riftelo/internal/adapters/repository"
	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/internal/domain/pipeline"
	"github.com/okian/riftelo/internal/domain/variant"
	"github.com/okian/riftelo/pkg/logger"
	"github.com/okian/riftelo/pkg/metrics"
)

const defaultMaxLeaderboardLimit = 100

// MatchSource supplies the chronologically ordered match history.
type MatchSource interface {
	Matches(ctx context.Context) ([]model.Match, error)
}

// Runner executes one isolated pipeline run.
type Runner interface {
	Run(ctx context.Context, cfg variant.Config, matches []model.Match) (pipeline.Result, error)
}

type pipelineRunner struct {
	opts []pipeline.Option
}

func (r pipelineRunner) Run(ctx context.Context, cfg variant.Config, matches []model.Match) (pipeline.Result, error) {
	return pipeline.New(cfg, r.opts...).Run(ctx, matches)
}

// Service caches pipeline results by configuration fingerprint.
type Service struct {
	mu sync.RWMutex
	// computeMu serializes computations so a fingerprint is computed at
	// most once even under concurrent callers.
	computeMu sync.Mutex

	source  MatchSource
	store   repository.Store
	regions pipeline.RegionLookup
	runner  Runner

	// foldRunner serves cross-validation folds.
	foldRunner Runner

	defaultSpec variant.Spec
	tuning      variant.Tuning
	workerCount int
	maxLimit    int
	backend     string

	matches  []model.Match
	started  bool
	computed int

	logger logger.Logger
}

// New constructs a Service reading history from source.
func New(source MatchSource, opts ...Option) *Service {
	s := &Service{
		source:      source,
		regions:     pipeline.NoRegions{},
		defaultSpec: variant.Spec{Variant: variant.TournamentContext.String(), KFactor: 24, UseScaleFactors: true, UseRegionalOffsets: true},
		workerCount: runtime.NumCPU(),
		maxLimit:    defaultMaxLeaderboardLimit,
		backend:     repository.BackendMemory,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.runner == nil {
		s.runner = pipelineRunner{opts: []pipeline.Option{
			pipeline.WithRegions(s.regions),
		}}
		s.foldRunner = pipelineRunner{opts: []pipeline.Option{
			pipeline.WithRegions(s.regions),
			pipeline.WithRecorder(pipeline.NopRecorder{}),
		}}
	}
	if s.foldRunner == nil {
		s.foldRunner = s.runner
	}
	return s
}

// Start loads the match history.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if _, err := s.DefaultConfig(); err != nil {
		return fmt.Errorf("default configuration: %w", err)
	}
	if err := s.loadLocked(ctx); err != nil {
		return err
	}
	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("matches", len(s.matches)),
		logger.String("backend", s.backend),
		logger.String("default_variant", s.defaultSpec.Variant),
	)
	return nil
}

func (s *Service) loadLocked(ctx context.Context) error {
	if s.source == nil {
		s.matches = nil
		return nil
	}
	matches, err := s.source.Matches(ctx)
	if err != nil {
		return fmt.Errorf("load match history: %w", err)
	}
	s.matches = matches
	return nil
}

// Stop releases the store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "error closing store", logger.Error(err))
	}
	s.started = false
	s.logger.Info(ctx, "rating service stopped")
}

// DefaultConfig returns the process-wide configuration.
func (s *Service) DefaultConfig() (variant.Config, error) {
	cfg, err := variant.New(s.defaultSpec)
	if err != nil {
		return variant.Config{}, err
	}
	return s.configure(cfg)
}

// configure applies the service tuning to cfg.
func (s *Service) configure(cfg variant.Config) (variant.Config, error) {
	return cfg.WithTuning(s.tuning)
}

// GetOrCompute returns the stored result for cfg, running the pipeline only
// when nothing is stored or force is set. A forced run reloads the match
// history first and replaces the stored entry as a whole.
func (s *Service) GetOrCompute(ctx context.Context, cfg variant.Config, force bool) (repository.Entry, error) {
	if err := s.ensureStarted(); err != nil {
		return repository.Entry{}, err
	}
	cfg, err := s.configure(cfg)
	if err != nil {
		return repository.Entry{}, err
	}
	key := cfg.Fingerprint()

	if !force {
		e, ok, err := s.lookup(ctx, key)
		if err != nil || ok {
			return e, err
		}
	}

	s.computeMu.Lock()
	defer s.computeMu.Unlock()

	if !force {
		// Another caller may have finished the same computation while we waited.
		e, ok, err := s.lookup(ctx, key)
		if err != nil || ok {
			return e, err
		}
	} else {
		s.mu.Lock()
		err := s.loadLocked(ctx)
		s.mu.Unlock()
		if err != nil {
			return repository.Entry{}, err
		}
	}

	return s.compute(ctx, cfg, key)
}

func (s *Service) lookup(ctx context.Context, key string) (repository.Entry, bool, error) {
	e, err := s.store.Lookup(ctx, key)
	switch {
	case err == nil:
		metrics.RecordCacheHit()
		s.logger.Debug(ctx, "cache hit", logger.String("config_hash", key))
		return e, true, nil
	case errors.Is(err, repository.ErrNotFound):
		return repository.Entry{}, false, nil
	default:
		metrics.RecordCacheError()
		s.logger.Error(ctx, "cache lookup failed", logger.String("config_hash", key), logger.Error(err))
		return repository.Entry{}, false, fmt.Errorf("lookup %s: %w", key, err)
	}
}

func (s *Service) compute(ctx context.Context, cfg variant.Config, key string) (repository.Entry, error) {
	metrics.RecordCacheMiss()
	runID := uuid.NewString()
	s.logger.Info(ctx, "computing rating trajectory",
		logger.String("config_hash", key),
		logger.String("run_id", runID),
		logger.String("variant", cfg.Variant().String()),
	)

	s.mu.RLock()
	matches := s.matches
	s.mu.RUnlock()

	res, err := s.runner.Run(ctx, cfg, matches)
	if err != nil {
		return repository.Entry{}, fmt.Errorf("run %s: %w", runID, err)
	}

	e := repository.Entry{
		ConfigHash: key,
		RunID:      runID,
		Config:     cfg.Spec(),
		ComputedAt: time.Now().UTC(),
		Processed:  res.Processed,
		Skipped:    res.Skipped,
		Ratings:    res.Ratings,
		Offsets:    res.Offsets,
		History:    res.History,
	}
	if err := s.store.Save(ctx, e); err != nil {
		metrics.RecordCacheError()
		return repository.Entry{}, fmt.Errorf("store %s: %w", key, err)
	}

	metrics.UpdateTrackedTeams(len(res.Ratings))
	for region, o := range res.Offsets {
		metrics.UpdateRegionOffset(region, o.Offset)
	}

	s.mu.Lock()
	s.computed++
	s.mu.Unlock()
	return e, nil
}

// Entry resolves hash to a stored result. An empty hash means the default
// configuration, computed on demand.
func (s *Service) Entry(ctx context.Context, hash string) (repository.Entry, error) {
	if hash == "" {
		cfg, err := s.DefaultConfig()
		if err != nil {
			return repository.Entry{}, err
		}
		return s.GetOrCompute(ctx, cfg, false)
	}
	if err := s.ensureStarted(); err != nil {
		return repository.Entry{}, err
	}
	e, ok, err := s.lookup(ctx, hash)
	if err != nil {
		return repository.Entry{}, err
	}
	if !ok {
		return repository.Entry{}, fmt.Errorf("%s: %w", hash, repository.ErrNotFound)
	}
	return e, nil
}

// History returns the ordered snapshots for hash.
func (s *Service) History(ctx context.Context, hash string) ([]model.Snapshot, error) {
	e, err := s.Entry(ctx, hash)
	if err != nil {
		return nil, err
	}
	return e.History, nil
}

// Trajectory returns team's rating after each match it played in hash.
func (s *Service) Trajectory(ctx context.Context, hash, team string) ([]repository.TrajectoryPoint, error) {
	e, err := s.Entry(ctx, hash)
	if err != nil {
		return nil, err
	}
	points := repository.TeamTrajectory(repository.TrajectoryPoints(e.History), team)
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: %w", team, repository.ErrUnknownTeam)
	}
	return points, nil
}

// Leaderboard ranks the teams of hash. limit is capped at the configured
// maximum.
func (s *Service) Leaderboard(ctx context.Context, hash string, limit int) ([]model.RankedTeam, error) {
	if limit <= 0 {
		return nil, repository.ErrInvalidLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	e, err := s.Entry(ctx, hash)
	if err != nil {
		return nil, err
	}
	return repository.TopN(e.Ratings, limit)
}

// Rank returns the ranked row of a single team of hash.
func (s *Service) Rank(ctx context.Context, hash, team string) (model.RankedTeam, error) {
	e, err := s.Entry(ctx, hash)
	if err != nil {
		return model.RankedTeam{}, err
	}
	return repository.RankOf(e.Ratings, team)
}

// Predict forecasts team1 against team2 from the final state of hash.
func (s *Service) Predict(ctx context.Context, hash, team1, team2 string) (model.Prediction, error) {
	e, err := s.Entry(ctx, hash)
	if err != nil {
		return model.Prediction{}, err
	}
	return pipeline.Predict(e.Ratings, e.Offsets, s.regions, e.Config.Tuning.InitialRating, team1, team2), nil
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]any {
	s.mu.RLock()
	stats := map[string]any{
		"started":     s.started,
		"matches":     len(s.matches),
		"computed":    s.computed,
		"backend":     s.backend,
		"workerCount": s.workerCount,
	}
	started := s.started
	s.mu.RUnlock()

	if cfg, err := s.DefaultConfig(); err == nil {
		stats["defaultConfigHash"] = cfg.Fingerprint()
	}
	if started {
		if hashes, err := s.store.Hashes(ctx); err == nil {
			stats["storedConfigs"] = len(hashes)
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	metrics.UpdateSystemMemoryUsage(mem.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	return stats
}

func (s *Service) ensureStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}
