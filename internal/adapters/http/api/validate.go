package api

import (
	"net/http"
)

// ValidateHandler runs temporal cross-validation.
type ValidateHandler struct {
	deps         Dependencies
	defaultFolds int
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(deps Dependencies, defaultFolds int) *ValidateHandler {
	if defaultFolds < 2 {
		defaultFolds = 5
	}
	return &ValidateHandler{deps: deps, defaultFolds: defaultFolds}
}

type validateRequest struct {
	configRequest
	Folds int `json:"folds"`
}

// HandlePostValidate handles POST /validate requests.
func (h *ValidateHandler) HandlePostValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	def, err := h.deps.DefaultConfig()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req validateRequest
	if err := decodeBody(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	cfg, err := req.resolve(def)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	folds := req.Folds
	if folds == 0 {
		folds = h.defaultFolds
	}
	summary, err := h.deps.Validate(r.Context(), cfg, folds)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
