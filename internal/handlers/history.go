package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"media-pipeline/internal/database"
	"media-pipeline/internal/logging"
	"media-pipeline/internal/model"

	"github.com/gorilla/mux"
)

const maxHistoryLimit = 500

// RunDetail is a stored run together with its per-item results.
type RunDetail struct {
	Run     *database.RunRecord `json:"run"`
	Results []model.JobResult   `json:"results"`
}

// GetHistory lists recent batch runs, newest first. Query parameters:
// kind (thumbnails, optimize, analyze, enhance) and limit.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "batch history is disabled", http.StatusNotFound)
		return
	}

	kind := model.JobKind(r.URL.Query().Get("kind"))
	switch kind {
	case "", model.KindThumbnails, model.KindOptimize, model.KindAnalyze, model.KindEnhance:
	default:
		writeJSONError(w, "unknown kind "+strconv.Quote(string(kind)), http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeJSONError(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.history.RecentRuns(r.Context(), kind, limit)
	if err != nil {
		logging.Error("Failed to list batch history: %v", err)
		writeJSONError(w, "failed to read history", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []database.RunRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, runs)
}

// GetRun returns one run and its results.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSONError(w, "batch history is disabled", http.StatusNotFound)
		return
	}

	id := mux.Vars(r)["id"]
	run, err := h.history.GetRun(r.Context(), id)
	if err == nil {
		var results []model.JobResult
		results, err = h.history.RunResults(r.Context(), id)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			writeJSON(w, RunDetail{Run: run, Results: results})
			return
		}
	}

	if errors.Is(err, database.ErrRunNotFound) {
		writeJSONError(w, "run not found", http.StatusNotFound)
		return
	}
	logging.Error("Failed to read run %s: %v", id, err)
	writeJSONError(w, "failed to read run", http.StatusInternalServerError)
}
