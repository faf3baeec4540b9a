package api

import (
	"net/http"
	"strconv"
)

// LabHandler serves the recomputed result and its slices.
type LabHandler struct {
	deps Dependencies
}

// NewLabHandler creates a new lab handler.
func NewLabHandler(deps Dependencies) *LabHandler {
	return &LabHandler{deps: deps}
}

// HandleGetLab handles GET /lab requests.
func (h *LabHandler) HandleGetLab(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_lab"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res, err := h.deps.Result(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGetMatchups handles GET /matchups?changed=true requests.
func (h *LabHandler) HandleGetMatchups(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_matchups"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	changed := false
	if v := r.URL.Query().Get("changed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, WrapKind(op, ErrBadRequest, err))
			return
		}
		changed = b
	}
	matchups, err := h.deps.Matchups(r.Context(), changed)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, matchups)
}

// HandleGetSummary handles GET /summary requests.
func (h *LabHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_summary"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	sum, err := h.deps.Summary(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
