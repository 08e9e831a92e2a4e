package api

import (
	"net/http"
)

// HistoryHandler serves ordered rating snapshots.
type HistoryHandler struct {
	deps Dependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps Dependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// HandleGetHistory handles GET /history?config_hash=H requests. With team=T
// the response is that team's rating trajectory instead of the snapshots.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	if team := q.Get("team"); team != "" {
		points, err := h.deps.Trajectory(r.Context(), q.Get("config_hash"), team)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, points)
		return
	}
	history, err := h.deps.History(r.Context(), q.Get("config_hash"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
