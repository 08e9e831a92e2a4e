package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/riftelo/internal/adapters/mq/queue"
	"github.com/okian/riftelo/internal/adapters/mq/worker"
	"github.com/okian/riftelo/internal/domain/validation"
	"github.com/okian/riftelo/internal/domain/variant"
	"github.com/okian/riftelo/pkg/logger"
)

// foldExecutor runs each fold through its own pipeline.
type foldExecutor struct {
	runner Runner
}

func (e foldExecutor) Execute(ctx context.Context, job queue.Job) (validation.Result, error) { //nolint:gocritic // hugeParam
	res, err := e.runner.Run(ctx, job.Config, job.Fold.Matches)
	if err != nil {
		return validation.Result{}, fmt.Errorf("fold %d: %w", job.Fold.Index, err)
	}
	return validation.Score(job.Fold, res.History), nil
}

// Validate runs expanding-window temporal cross-validation over the loaded
// history. Folds run concurrently on a worker pool; results are ordered by
// fold.
func (s *Service) Validate(ctx context.Context, cfg variant.Config, folds int) (validation.Summary, error) {
	if err := s.ensureStarted(); err != nil {
		return validation.Summary{}, err
	}
	cfg, err := s.configure(cfg)
	if err != nil {
		return validation.Summary{}, err
	}

	s.mu.RLock()
	matches := s.matches
	workers := s.workerCount
	s.mu.RUnlock()

	if len(matches) == 0 {
		return validation.Summary{}, ErrNoMatches
	}
	splits, err := validation.Split(matches, folds)
	if err != nil {
		return validation.Summary{}, err
	}
	if workers > len(splits) {
		workers = len(splits)
	}

	runID := uuid.NewString()
	q := queue.NewInMemoryQueue(queue.WithCapacity(len(splits)))
	for _, f := range splits {
		if !q.Enqueue(ctx, queue.Job{ID: runID, Config: cfg, Fold: f}) {
			return validation.Summary{}, fmt.Errorf("enqueue fold %d: queue rejected job", f.Index)
		}
	}
	_ = q.Close()

	var (
		mu      sync.Mutex
		results = make([]validation.Result, 0, len(splits))
		errs    = map[int]error{}
	)
	collect := worker.CollectorFunc(func(_ context.Context, job queue.Job, res validation.Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs[job.Fold.Index] = err
			return
		}
		results = append(results, res)
	})

	pool := worker.NewPool(workers, q, foldExecutor{runner: s.foldRunner}, collect)
	pool.Start(ctx)
	if err := pool.Wait(ctx); err != nil {
		_ = pool.Shutdown(context.WithoutCancel(ctx))
		return validation.Summary{}, err
	}

	if len(errs) > 0 {
		first := -1
		for idx := range errs {
			if first < 0 || idx < first {
				first = idx
			}
		}
		return validation.Summary{}, errs[first]
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Fold < results[j].Fold })
	summary := validation.Summarize(results)
	s.logger.Info(ctx, "cross-validation finished",
		logger.String("run_id", runID),
		logger.String("config_hash", cfg.Fingerprint()),
		logger.Int("folds", len(results)),
		logger.Int("workers", workers),
		logger.Float64("accuracy", summary.Accuracy),
		logger.Float64("brier", summary.Brier),
	)
	return summary, nil
}
