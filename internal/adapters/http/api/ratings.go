package api

import (
	"net/http"
	"time"

	"github.com/okian/riftelo/internal/adapters/repository"
	"github.com/okian/riftelo/internal/domain/model"
)

// RatingsHandler serves computed rating maps.
type RatingsHandler struct {
	deps Dependencies
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps Dependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps}
}

type ratingsRequest struct {
	configRequest
	ForceRecompute bool `json:"force_recompute"`
}

type ratingsResponse struct {
	ConfigHash string                        `json:"config_hash"`
	RunID      string                        `json:"run_id"`
	ComputedAt time.Time                     `json:"computed_at"`
	Processed  int                           `json:"processed"`
	Skipped    int                           `json:"skipped"`
	Ratings    map[string]model.TeamStanding `json:"ratings"`
	Offsets    map[string]model.RegionOffset `json:"offsets,omitempty"`
}

func newRatingsResponse(e repository.Entry) ratingsResponse { //nolint:gocritic // hugeParam
	return ratingsResponse{
		ConfigHash: e.ConfigHash,
		RunID:      e.RunID,
		ComputedAt: e.ComputedAt,
		Processed:  e.Processed,
		Skipped:    e.Skipped,
		Ratings:    e.Ratings,
		Offsets:    e.Offsets,
	}
}

// HandleRatings handles GET /ratings for the default configuration and
// POST /ratings for a configuration in the body.
func (h *RatingsHandler) HandleRatings(w http.ResponseWriter, r *http.Request) {
	def, err := h.deps.DefaultConfig()
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cfg, force := def, false
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req ratingsRequest
		if err := decodeBody(r, &req); err != nil {
			writeServiceError(w, err)
			return
		}
		if cfg, err = req.resolve(def); err != nil {
			writeServiceError(w, err)
			return
		}
		force = req.ForceRecompute
	default:
		http.NotFound(w, r)
		return
	}

	e, err := h.deps.GetOrCompute(r.Context(), cfg, force)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newRatingsResponse(e))
}
