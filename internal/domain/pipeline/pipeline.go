// Package pipeline folds an ordered match history into a rating trajectory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/internal/domain/offset"
	"github.com/okian/riftelo/internal/domain/rating"
	"github.com/okian/riftelo/internal/domain/stepsize"
	"github.com/okian/riftelo/internal/domain/variant"
	"github.com/okian/riftelo/pkg/logger"
)

// RegionLookup resolves the region a team competes in.
type RegionLookup interface {
	Region(team string) (string, bool)
}

// NoRegions is a RegionLookup that knows no team.
type NoRegions struct{}

// Region implements RegionLookup.
func (NoRegions) Region(string) (string, bool) { return "", false }

// Result is the terminal state of one run.
type Result struct {
	Ratings   map[string]model.TeamStanding
	History   []model.Snapshot
	Offsets   map[string]model.RegionOffset
	Processed int
	Skipped   int
}

// Pipeline assembles the rating strategies a configuration enables and runs
// them over a match history. All mutable state is created per Run, so one
// Pipeline may serve many runs.
type Pipeline struct {
	cfg       variant.Config
	regions   RegionLookup
	stepRules []stepsize.Rule
	recorder  Recorder
	logger    logger.Logger
}

// New creates a pipeline for cfg.
func New(cfg variant.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		regions:  NoRegions{},
		recorder: promRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("pipeline")
	}
	return p
}

// Config returns the configuration the pipeline runs.
func (p *Pipeline) Config() variant.Config { return p.cfg }

// run is the per-run state: INIT creates it, DONE discards it.
type run struct {
	store    *rating.Store
	engine   *rating.Engine
	learner  *offset.Learner
	selector *stepsize.Selector
	stats    map[string]*model.TeamStanding

	history   []model.Snapshot
	correct   int
	predicted int
}

func (p *Pipeline) newRun(capacity int) *run {
	caps := p.cfg.Capabilities()
	tuning := p.cfg.Tuning()
	r := &run{
		store:   rating.NewStore(tuning.InitialRating),
		stats:   make(map[string]*model.TeamStanding),
		history: make([]model.Snapshot, 0, capacity),
	}
	if caps.ScaleFactors {
		r.engine = rating.NewEngine(rating.WithScaleFactors(p.cfg.ScaleFactors()))
	} else {
		r.engine = rating.NewEngine()
	}
	if caps.RegionalOffsets {
		r.learner = offset.NewLearner(tuning.OffsetOptions()...)
	}
	if caps.ContextualK {
		r.selector = stepsize.NewSelector(p.cfg.KFactor(), p.stepRules)
	}
	return r
}

// Run processes matches in the order given. Malformed records are logged and
// skipped without touching state; a tied series aborts the run with an error
// wrapping model.ErrTiedScore.
func (p *Pipeline) Run(ctx context.Context, matches []model.Match) (Result, error) {
	start := time.Now()
	r := p.newRun(len(matches))
	skipped := 0

	for i, m := range matches {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := m.Validate(); err != nil {
			if errors.Is(err, model.ErrTiedScore) {
				return Result{}, fmt.Errorf("match %d: %w", i, err)
			}
			p.skip(ctx, i, m, err)
			skipped++
			continue
		}
		snap, err := p.step(r, len(r.history), i, m)
		if err != nil {
			p.skip(ctx, i, m, err)
			skipped++
			continue
		}
		r.history = append(r.history, snap)
		p.recorder.MatchProcessed()
	}

	res := Result{
		Ratings:   make(map[string]model.TeamStanding, len(r.stats)),
		History:   r.history,
		Offsets:   map[string]model.RegionOffset{},
		Processed: len(r.history),
		Skipped:   skipped,
	}
	for team, st := range r.stats {
		res.Ratings[team] = *st
	}
	if r.learner != nil {
		res.Offsets = r.learner.Snapshot()
	}

	elapsed := time.Since(start)
	p.recorder.RunFinished(p.cfg.Variant().String(), float64(elapsed.Milliseconds()))
	p.logger.Info(ctx, "rating trajectory computed",
		logger.String("variant", p.cfg.Variant().String()),
		logger.Int("processed", res.Processed),
		logger.Int("skipped", res.Skipped),
		logger.Int("teams", len(res.Ratings)),
		logger.Duration("elapsed", elapsed),
	)
	return res, nil
}

// step runs PREDICT, SCORE_UPDATE and OFFSET_UPDATE for one validated match
// and returns its snapshot. State is only written once the delta is known
// to be valid.
func (p *Pipeline) step(r *run, index, input int, m model.Match) (model.Snapshot, error) {
	r1 := p.current(r, m.Team1)
	r2 := p.current(r, m.Team2)
	reg1, _ := p.regions.Region(m.Team1)
	reg2, _ := p.regions.Region(m.Team2)

	var o1, o2 float64
	crossRegion := r.learner != nil && offset.Applies(reg1, reg2)
	if crossRegion {
		o1, o2 = r.learner.Offset(reg1), r.learner.Offset(reg2)
	}

	expected1 := rating.Expected(r1+o1, r2+o2)
	predicted := m.Team1
	if expected1 < 0.5 {
		predicted = m.Team2
	}

	k := p.cfg.KFactor()
	if r.selector != nil {
		k = r.selector.KFor(m.Tournament, m.Stage)
	}

	u, err := r.engine.Apply(r.store, m, expected1, k)
	if err != nil {
		return model.Snapshot{}, err
	}

	winner, loser := m.Winner()
	if crossRegion {
		winnerRegion, loserRegion := reg1, reg2
		winnerRating, loserRating := r1, r2
		if !m.Team1Won() {
			winnerRegion, loserRegion = reg2, reg1
			winnerRating, loserRating = r2, r1
		}
		r.learner.Update(winnerRegion, loserRegion, winnerRating, loserRating, m.Margin())
	}

	p.record(r, winner, m.Date, true)
	p.record(r, loser, m.Date, false)

	r.predicted++
	correct := predicted == winner
	if correct {
		r.correct++
	}

	st1, st2 := r.stats[m.Team1], r.stats[m.Team2]
	return model.Snapshot{
		Index:      index,
		Input:      input,
		Date:       m.Date,
		Tournament: m.Tournament,
		Stage:      m.Stage,
		Team1: model.Side{
			Team: m.Team1, Region: reg1,
			RatingBefore: r1, RatingAfter: r.store.Get(m.Team1),
			OffsetApplied: o1, Wins: st1.Wins, Losses: st1.Losses,
		},
		Team2: model.Side{
			Team: m.Team2, Region: reg2,
			RatingBefore: r2, RatingAfter: r.store.Get(m.Team2),
			OffsetApplied: o2, Wins: st2.Wins, Losses: st2.Losses,
		},
		Score1:          m.Score1,
		Score2:          m.Score2,
		KFactor:         k,
		ScaleFactor:     u.ScaleFactor,
		Expected1:       expected1,
		PredictedWinner: predicted,
		ActualWinner:    winner,
		Correct:         correct,
		CorrectSoFar:    r.correct,
		PredictedSoFar:  r.predicted,
	}, nil
}

// current reads a rating without registering the team.
func (p *Pipeline) current(r *run, team string) float64 {
	if v, ok := r.store.Peek(team); ok {
		return v
	}
	return r.store.Initial()
}

func (p *Pipeline) record(r *run, team string, date time.Time, won bool) {
	st, ok := r.stats[team]
	if !ok {
		st = &model.TeamStanding{}
		r.stats[team] = st
	}
	st.Rating = r.store.Get(team)
	st.MatchesPlayed++
	if won {
		st.Wins++
	} else {
		st.Losses++
	}
	st.LastPlayed = date
}

func (p *Pipeline) skip(ctx context.Context, index int, m model.Match, err error) {
	p.recorder.MatchSkipped(skipReason(err))
	p.logger.Warn(ctx, "skipping match",
		logger.Int("index", index),
		logger.String("team1", m.Team1),
		logger.String("team2", m.Team2),
		logger.Error(err),
	)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, model.ErrMissingTeam):
		return "missing_team"
	case errors.Is(err, model.ErrSameTeam):
		return "same_team"
	case errors.Is(err, model.ErrNegativeScore):
		return "negative_score"
	default:
		return "invalid_update"
	}
}
