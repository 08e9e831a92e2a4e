package api

import (
	"fmt"
	"net/http"
	"strings"
)

// PredictHandler forecasts matchups.
type PredictHandler struct {
	deps Dependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps Dependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// HandleGetPredict handles GET /predict?config_hash=H&team1=A&team2=B requests.
func (h *PredictHandler) HandleGetPredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	team1, team2 := strings.TrimSpace(q.Get("team1")), strings.TrimSpace(q.Get("team2"))
	if team1 == "" || team2 == "" || team1 == team2 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: two distinct teams required", ErrBadRequest))
		return
	}
	p, err := h.deps.Predict(r.Context(), q.Get("config_hash"), team1, team2)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
