package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/kvasari/surehash/internal/scheduler"
)

// StatusHandler handles GET /api/status.
type StatusHandler struct {
	DB      *sql.DB
	Sched   *scheduler.Scheduler
	Version string
}

type statusResponse struct {
	Version    string        `json:"version"`
	ActiveRun  *runInfo      `json:"active_run"`
	LastRun    *runInfo      `json:"last_run"`
	Schedule   scheduleInfo  `json:"schedule"`
	HashTotal  int64         `json:"hash_rows_total"`
}

type runInfo struct {
	ID         string     `json:"id"`
	Root       string     `json:"root"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	FilesTotal int64      `json:"files_total"`
	BytesTotal int64      `json:"bytes_total"`
	Error      string     `json:"error,omitempty"`
}

type scheduleInfo struct {
	Cron      string     `json:"cron"`
	Paused    bool       `json:"paused"`
	NextRunAt *time.Time `json:"next_run_at"`
}

// ServeHTTP returns the system status as JSON.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Version:   h.Version,
		ActiveRun: h.runByStatus("running"),
		LastRun:   h.lastFinishedRun(),
	}
	if h.Sched != nil {
		resp.Schedule = scheduleInfo{
			Cron:      h.Sched.CronExpr(),
			NextRunAt: h.Sched.NextRunAt(),
		}
	}
	if h.DB != nil {
		var total int64
		if err := h.DB.QueryRow(`SELECT COUNT(*) FROM hashes`).Scan(&total); err != nil {
			slog.Error("status: count hashes", "error", err)
		}
		resp.HashTotal = total
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StatusHandler) runByStatus(status string) *runInfo {
	if h.DB == nil {
		return nil
	}
	row := h.DB.QueryRow(`
		SELECT id, root, status, started_at, finished_at, files_total, bytes_total, error
		FROM hash_runs WHERE status = ?
		ORDER BY started_at DESC LIMIT 1`, status)
	return scanRunInfo(row)
}

func (h *StatusHandler) lastFinishedRun() *runInfo {
	if h.DB == nil {
		return nil
	}
	row := h.DB.QueryRow(`
		SELECT id, root, status, started_at, finished_at, files_total, bytes_total, error
		FROM hash_runs WHERE status != 'running'
		ORDER BY finished_at DESC LIMIT 1`)
	return scanRunInfo(row)
}

func scanRunInfo(row *sql.Row) *runInfo {
	var (
		id, root, status string
		startedAt        int64
		finishedAt       sql.NullInt64
		filesTotal       int64
		bytesTotal       int64
		errMsg           sql.NullString
	)
	if err := row.Scan(&id, &root, &status, &startedAt, &finishedAt, &filesTotal, &bytesTotal, &errMsg); err != nil {
		if err != sql.ErrNoRows {
			slog.Error("status: scan run row", "error", err)
		}
		return nil
	}
	info := &runInfo{
		ID:         id,
		Root:       root,
		Status:     status,
		StartedAt:  time.Unix(startedAt, 0).UTC(),
		FilesTotal: filesTotal,
		BytesTotal: bytesTotal,
	}
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		info.FinishedAt = &t
	}
	if errMsg.Valid {
		info.Error = errMsg.String
	}
	return info
}
