// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/riftelo/internal/adapters/repository"
	service "github.com/okian/riftelo/internal/app"
	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/internal/domain/validation"
	"github.com/okian/riftelo/internal/domain/variant"
)

const defaultLeaderboardLimit = 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DefaultConfig() (variant.Config, error)
	GetOrCompute(ctx context.Context, cfg variant.Config, force bool) (repository.Entry, error)
	History(ctx context.Context, hash string) ([]model.Snapshot, error)
	Trajectory(ctx context.Context, hash, team string) ([]repository.TrajectoryPoint, error)
	Leaderboard(ctx context.Context, hash string, limit int) ([]model.RankedTeam, error)
	Rank(ctx context.Context, hash, team string) (model.RankedTeam, error)
	Predict(ctx context.Context, hash, team1, team2 string) (model.Prediction, error)
	Validate(ctx context.Context, cfg variant.Config, folds int) (validation.Summary, error)
}

// Server wires HTTP routes for the rating API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	ratingsHandler     *RatingsHandler
	historyHandler     *HistoryHandler
	leaderboardHandler *LeaderboardHandler
	predictHandler     *PredictHandler
	validateHandler    *ValidateHandler
}

// NewServer creates a new API server with all handlers. defaultFolds is
// used when a validation request does not name a fold count.
func NewServer(deps Dependencies, statsProvider StatsProvider, defaultFolds int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		ratingsHandler:     NewRatingsHandler(deps),
		historyHandler:     NewHistoryHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		predictHandler:     NewPredictHandler(deps),
		validateHandler:    NewValidateHandler(deps, defaultFolds),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ratings", MetricsMiddleware(s.ratingsHandler.HandleRatings, "ratings"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandleGetPredict, "predict"))
	mux.HandleFunc("/validate", MetricsMiddleware(s.validateHandler.HandlePostValidate, "validate"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates upstream sentinel errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrUnknownTeam):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, variant.ErrUnknownVariant),
		errors.Is(err, variant.ErrInvalidKFactor),
		errors.Is(err, variant.ErrInvalidScaleFactor),
		errors.Is(err, variant.ErrInvalidTuning),
		errors.Is(err, repository.ErrInvalidLimit),
		errors.Is(err, validation.ErrInvalidFolds),
		errors.Is(err, validation.ErrNotEnoughMatches),
		errors.Is(err, service.ErrNoMatches),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrTiedScore):
		writeError(w, http.StatusUnprocessableEntity, "invalid_history", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "not_started", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// configRequest is the configuration part of POST bodies. Omitted fields
// fall back to the default variant and K-factor; capability flags left out
// follow the variant's own table.
type configRequest struct {
	Variant            *string            `json:"variant"`
	KFactor            *float64           `json:"k_factor"`
	UseScaleFactors    bool               `json:"use_scale_factors"`
	ScaleFactors       map[string]float64 `json:"scale_factors"`
	UseRegionalOffsets bool               `json:"use_regional_offsets"`
}

func (c configRequest) resolve(def variant.Config) (variant.Config, error) {
	spec := variant.Spec{
		Variant:            def.Variant().String(),
		KFactor:            def.KFactor(),
		UseScaleFactors:    c.UseScaleFactors,
		ScaleFactors:       c.ScaleFactors,
		UseRegionalOffsets: c.UseRegionalOffsets,
	}
	if c.Variant != nil {
		spec.Variant = *c.Variant
	}
	if c.KFactor != nil {
		spec.KFactor = *c.KFactor
	}
	return variant.New(spec)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
