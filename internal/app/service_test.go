package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/riftelo/internal/adapters/repository"
	service "github.com/okian/riftelo/internal/app"
	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/internal/domain/pipeline"
	"github.com/okian/riftelo/internal/domain/variant"
	"github.com/okian/riftelo/pkg/logger"
	"github.com/okian/riftelo/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type staticSource struct {
	matches []model.Match
	loads   atomic.Int32
}

func (s *staticSource) Matches(context.Context) ([]model.Match, error) {
	s.loads.Add(1)
	return s.matches, nil
}

type countingRunner struct {
	calls atomic.Int32
}

func (r *countingRunner) Run(ctx context.Context, cfg variant.Config, matches []model.Match) (pipeline.Result, error) {
	r.calls.Add(1)
	return pipeline.New(cfg).Run(ctx, matches)
}

func history(n int) []model.Match {
	teams := []string{"T1", "GEN", "G2", "FNC", "C9", "TL"}
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Match, 0, n)
	for i := 0; i < n; i++ {
		a, b := teams[i%len(teams)], teams[(i*5+1)%len(teams)]
		if a == b {
			b = teams[(i+1)%len(teams)]
		}
		s1, s2 := 2, 1
		if i%3 == 0 {
			s1, s2 = 0, 2
		}
		out = append(out, model.Match{
			Team1: a, Team2: b, Score1: s1, Score2: s2,
			Date:       day.AddDate(0, 0, i),
			Tournament: "LCK 2024 Summer",
			Stage:      fmt.Sprintf("Week %d", i/7+1),
		})
	}
	return out
}

func baseConfig() variant.Config {
	return variant.MustNew(variant.Spec{Variant: "base", KFactor: 24})
}

func newService(src *staticSource, runner *countingRunner, opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithRunner(runner)}, opts...)
	return service.New(src, opts...)
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a service that has not started", t, func() {
		svc := newService(&staticSource{}, &countingRunner{})

		Convey("Then calls fail with ErrNotStarted", func() {
			_, err := svc.GetOrCompute(context.Background(), baseConfig(), false)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.Stats(context.Background())["started"], ShouldEqual, false)
		})

		Convey("When started and stopped", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Stats(ctx)["started"], ShouldEqual, true)
			svc.Stop(ctx)
			So(svc.Stats(ctx)["started"], ShouldEqual, false)
		})
	})

	Convey("An invalid default configuration fails Start", t, func() {
		svc := service.New(&staticSource{}, service.WithDefaultSpec(variant.Spec{Variant: "glicko", KFactor: 24}))
		err := svc.Start(context.Background())
		So(errors.Is(err, variant.ErrUnknownVariant), ShouldBeTrue)
	})
}

func TestService_GetOrCompute(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		src := &staticSource{matches: history(30)}
		runner := &countingRunner{}
		svc := newService(src, runner)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Repeated calls run the pipeline once and return identical results", func() {
			first, err := svc.GetOrCompute(ctx, baseConfig(), false)
			So(err, ShouldBeNil)
			second, err := svc.GetOrCompute(ctx, baseConfig(), false)
			So(err, ShouldBeNil)

			So(runner.calls.Load(), ShouldEqual, 1)
			So(second.ConfigHash, ShouldEqual, first.ConfigHash)
			So(second.RunID, ShouldEqual, first.RunID)
			So(second.Ratings, ShouldResemble, first.Ratings)
			So(first.Processed, ShouldEqual, 30)
		})

		Convey("Concurrent callers share one computation", func() {
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _ = svc.GetOrCompute(ctx, baseConfig(), false)
				}()
			}
			wg.Wait()
			So(runner.calls.Load(), ShouldEqual, 1)
		})

		Convey("Forced recomputation reruns, reloads history and replaces the entry", func() {
			first, err := svc.GetOrCompute(ctx, baseConfig(), false)
			So(err, ShouldBeNil)
			src.matches = history(12)

			forced, err := svc.GetOrCompute(ctx, baseConfig(), true)
			So(err, ShouldBeNil)
			So(runner.calls.Load(), ShouldEqual, 2)
			So(src.loads.Load(), ShouldEqual, 2)
			So(forced.RunID, ShouldNotEqual, first.RunID)
			So(forced.History, ShouldHaveLength, 12)

			stored, err := svc.History(ctx, forced.ConfigHash)
			So(err, ShouldBeNil)
			So(stored, ShouldHaveLength, 12)
		})

		Convey("Different configurations are cached separately", func() {
			a, _ := svc.GetOrCompute(ctx, baseConfig(), false)
			b, _ := svc.GetOrCompute(ctx, variant.MustNew(variant.Spec{Variant: "base", KFactor: 32}), false)
			So(a.ConfigHash, ShouldNotEqual, b.ConfigHash)
			So(runner.calls.Load(), ShouldEqual, 2)
		})

		Convey("Unknown hashes are reported as not found", func() {
			_, err := svc.History(ctx, "deadbeef")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("A tied series surfaces as an error and stores nothing", t, func() {
		ctx := context.Background()
		matches := history(3)
		matches[1].Score2 = matches[1].Score1
		store := repository.NewMemoryStore()
		svc := newService(&staticSource{matches: matches}, &countingRunner{}, service.WithStore(store, "memory"))
		So(svc.Start(ctx), ShouldBeNil)

		_, err := svc.GetOrCompute(ctx, baseConfig(), false)
		So(errors.Is(err, model.ErrTiedScore), ShouldBeTrue)
		hashes, _ := store.Hashes(ctx)
		So(hashes, ShouldBeEmpty)
	})
}

func TestService_TuningIsPartOfTheKey(t *testing.T) {
	Convey("Given two services with different tuning sharing one store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore()
		src := &staticSource{matches: history(12)}
		a := newService(src, &countingRunner{}, service.WithStore(store, "memory"))
		b := newService(src, &countingRunner{},
			service.WithStore(store, "memory"),
			service.WithTuning(variant.Tuning{MaxOffset: 1}),
			service.WithInitialRating(1000),
		)
		So(a.Start(ctx), ShouldBeNil)
		So(b.Start(ctx), ShouldBeNil)

		ea, err := a.GetOrCompute(ctx, baseConfig(), false)
		So(err, ShouldBeNil)
		eb, err := b.GetOrCompute(ctx, baseConfig(), false)
		So(err, ShouldBeNil)

		Convey("Each gets its own entry and trajectory", func() {
			So(eb.ConfigHash, ShouldNotEqual, ea.ConfigHash)
			So(eb.RunID, ShouldNotEqual, ea.RunID)
			hashes, err := store.Hashes(ctx)
			So(err, ShouldBeNil)
			So(hashes, ShouldHaveLength, 2)

			So(ea.Config.Tuning.InitialRating, ShouldEqual, 1500)
			So(eb.Config.Tuning.InitialRating, ShouldEqual, 1000)
			So(eb.Config.Tuning.MaxOffset, ShouldEqual, 1)
			So(eb.Ratings["T1"].Rating, ShouldBeLessThan, 1200)
			So(ea.Ratings["T1"].Rating, ShouldBeGreaterThan, 1300)
		})

		Convey("Predictions for unseen teams use the entry's initial rating", func() {
			p, err := b.Predict(ctx, eb.ConfigHash, "NEW1", "NEW2")
			So(err, ShouldBeNil)
			So(p.Rating1, ShouldEqual, 1000)
		})
	})
}

func TestService_Views(t *testing.T) {
	Convey("Given a computed default configuration", t, func() {
		ctx := context.Background()
		svc := newService(&staticSource{matches: history(30)}, &countingRunner{},
			service.WithDefaultSpec(variant.Spec{Variant: "base", KFactor: 24}),
			service.WithMaxLeaderboardLimit(3),
		)
		So(svc.Start(ctx), ShouldBeNil)

		Convey("An empty hash resolves to the default configuration", func() {
			e, err := svc.Entry(ctx, "")
			So(err, ShouldBeNil)
			cfg, _ := svc.DefaultConfig()
			So(e.ConfigHash, ShouldEqual, cfg.Fingerprint())
		})

		Convey("Leaderboards are ranked and capped", func() {
			rows, err := svc.Leaderboard(ctx, "", 50)
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 3)
			So(rows[0].Rank, ShouldEqual, 1)
			So(rows[0].Rating, ShouldBeGreaterThanOrEqualTo, rows[1].Rating)

			_, err = svc.Leaderboard(ctx, "", 0)
			So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
		})

		Convey("A single team's rank agrees with the leaderboard", func() {
			rows, err := svc.Leaderboard(ctx, "", 3)
			So(err, ShouldBeNil)
			row, err := svc.Rank(ctx, "", rows[0].Team)
			So(err, ShouldBeNil)
			So(row.Rank, ShouldEqual, 1)

			_, err = svc.Rank(ctx, "", "NOPE")
			So(errors.Is(err, repository.ErrUnknownTeam), ShouldBeTrue)
		})

		Convey("A team's trajectory ends at its final rating", func() {
			e, err := svc.Entry(ctx, "")
			So(err, ShouldBeNil)
			points, err := svc.Trajectory(ctx, "", "T1")
			So(err, ShouldBeNil)
			So(points, ShouldNotBeEmpty)
			last := points[len(points)-1]
			So(last.Rating, ShouldEqual, e.Ratings["T1"].Rating)
			So(last.MatchesPlayed, ShouldEqual, e.Ratings["T1"].MatchesPlayed)

			_, err = svc.Trajectory(ctx, "", "NOPE")
			So(errors.Is(err, repository.ErrUnknownTeam), ShouldBeTrue)
		})

		Convey("Predictions are symmetric", func() {
			p, err := svc.Predict(ctx, "", "T1", "GEN")
			So(err, ShouldBeNil)
			q, err := svc.Predict(ctx, "", "GEN", "T1")
			So(err, ShouldBeNil)
			So(p.Probability1+q.Probability1, ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("Stats report the stored configuration", func() {
			_, _ = svc.Entry(ctx, "")
			stats := svc.Stats(ctx)
			So(stats["computed"], ShouldEqual, 1)
			So(stats["storedConfigs"], ShouldEqual, 1)
			So(stats["matches"], ShouldEqual, 30)
		})
	})
}

func TestService_Validate(t *testing.T) {
	Convey("Given a started service with history", t, func() {
		ctx := context.Background()
		runner := &countingRunner{}
		svc := newService(&staticSource{matches: history(40)}, runner, service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Each fold runs in isolation and results are ordered", func() {
			summary, err := svc.Validate(ctx, baseConfig(), 5)
			So(err, ShouldBeNil)
			So(summary.Folds, ShouldHaveLength, 4)
			So(runner.calls.Load(), ShouldEqual, 4)
			for i, f := range summary.Folds {
				So(f.Fold, ShouldEqual, i+1)
				So(f.Evaluated, ShouldEqual, 8)
				So(f.Accuracy, ShouldBeBetweenOrEqual, 0, 1)
			}
			So(summary.Evaluated, ShouldEqual, 32)
		})

		Convey("Validation is deterministic", func() {
			a, err := svc.Validate(ctx, baseConfig(), 4)
			So(err, ShouldBeNil)
			b, err := svc.Validate(ctx, baseConfig(), 4)
			So(err, ShouldBeNil)
			So(b, ShouldResemble, a)
		})

		Convey("Too few folds are rejected", func() {
			_, err := svc.Validate(ctx, baseConfig(), 1)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a service with the default runner", t, func() {
		ctx := context.Background()
		svc := service.New(&staticSource{matches: history(40)}, service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("Fold runs leave the production pipeline counters alone", func() {
			processed := counterTotal("riftelo_ratings_matches_processed_total")
			runs := counterTotal("riftelo_ratings_pipeline_runs_total")
			_, err := svc.Validate(ctx, baseConfig(), 4)
			So(err, ShouldBeNil)
			So(counterTotal("riftelo_ratings_matches_processed_total"), ShouldEqual, processed)
			So(counterTotal("riftelo_ratings_pipeline_runs_total"), ShouldEqual, runs)

			_, err = svc.GetOrCompute(ctx, baseConfig(), false)
			So(err, ShouldBeNil)
			So(counterTotal("riftelo_ratings_pipeline_runs_total"), ShouldEqual, runs+1)
			So(counterTotal("riftelo_ratings_matches_processed_total"), ShouldEqual, processed+40)
		})
	})

	Convey("Validation without history fails", t, func() {
		svc := newService(&staticSource{}, &countingRunner{})
		So(svc.Start(context.Background()), ShouldBeNil)
		_, err := svc.Validate(context.Background(), baseConfig(), 3)
		So(errors.Is(err, service.ErrNoMatches), ShouldBeTrue)
	})
}

func counterTotal(name string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
