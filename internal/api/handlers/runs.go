package handlers

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RunsHandler handles GET /api/runs/{id}.
type RunsHandler struct {
	DB *sql.DB
}

// Get returns a single run's stats by its UUID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "run id is required")
		return
	}
	row := h.DB.QueryRow(`
		SELECT id, root, status, started_at, finished_at, files_total, bytes_total, error
		FROM hash_runs WHERE id = ?`, id)
	info := scanRunInfo(row)
	if info == nil {
		writeError(w, http.StatusNotFound, "not_found", "no run with that id")
		return
	}
	writeJSON(w, http.StatusOK, info)
}
