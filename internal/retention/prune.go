// Package retention prunes old weave deltas once more than
// delta_retention_count have accumulated, keeping the newest deltas and
// discarding the rest. The weave file format itself is an external
// collaborator (spec's own non-goal); this package only tracks delta
// metadata and asks a caller-supplied remover to drop the bytes.
package retention

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DeltaRemover drops the bytes for one weave delta. The production
// implementation lives alongside the weave writer that owns the
// backing file; retention never touches weave internals directly.
type DeltaRemover interface {
	RemoveDelta(number int) error
}

// Manager tracks known weave deltas and prunes beyond keepCount.
type Manager struct {
	db        *sql.DB
	keepCount int
}

// New creates a Manager that retains the keepCount most recent deltas.
func New(db *sql.DB, keepCount int) *Manager {
	return &Manager{db: db, keepCount: keepCount}
}

// NextDeltaNumber returns one past the highest delta number recorded so
// far (across both the live and pruned tables), starting at 1.
func (m *Manager) NextDeltaNumber(ctx context.Context) (int, error) {
	var maxLive, maxPruned sql.NullInt64
	if err := m.db.QueryRowContext(ctx, `SELECT MAX(number) FROM weave_deltas`).Scan(&maxLive); err != nil {
		return 0, fmt.Errorf("retention: query max live delta: %w", err)
	}
	if err := m.db.QueryRowContext(ctx, `SELECT MAX(number) FROM pruned_deltas`).Scan(&maxPruned); err != nil {
		return 0, fmt.Errorf("retention: query max pruned delta: %w", err)
	}
	max := maxLive.Int64
	if maxPruned.Int64 > max {
		max = maxPruned.Int64
	}
	return int(max) + 1, nil
}

// RecordDelta registers a newly written delta in the catalog.
func (m *Manager) RecordDelta(ctx context.Context, number int, bytes int64) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO weave_deltas (number, bytes, created_at) VALUES (?, ?, ?)`,
		number, bytes, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("retention: record delta %d: %w", number, err)
	}
	return nil
}

// Prune removes every delta beyond the keepCount most recent, newest
// of those first (descending delta number). Failure to remove one delta's bytes is logged and
// the catalog row is left in place so it's retried on the next run —
// mirrors the teacher's trash AutoPurge's "leave DB row to retry later"
// behavior.
func (m *Manager) Prune(ctx context.Context, remover DeltaRemover) (count int, bytesFreed int64, err error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT number, bytes FROM weave_deltas
		ORDER BY number DESC
		LIMIT -1 OFFSET ?`, m.keepCount)
	if err != nil {
		return 0, 0, fmt.Errorf("retention: query prunable deltas: %w", err)
	}
	defer rows.Close()

	type candidate struct {
		number int
		bytes  int64
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.number, &c.bytes); err != nil {
			return count, bytesFreed, fmt.Errorf("retention: scan prunable delta: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return count, bytesFreed, err
	}

	for _, c := range candidates {
		if rerr := remover.RemoveDelta(c.number); rerr != nil && !errors.Is(rerr, ErrDeltaAlreadyGone) {
			slog.Warn("retention: remove delta failed, will retry later", "delta", c.number, "error", rerr)
			continue
		}

		if _, derr := m.db.ExecContext(ctx,
			`INSERT INTO pruned_deltas (number, bytes, pruned_at) VALUES (?, ?, ?)`,
			c.number, c.bytes, time.Now().Unix()); derr != nil {
			slog.Error("retention: record pruned delta", "delta", c.number, "error", derr)
		}
		if _, derr := m.db.ExecContext(ctx, `DELETE FROM weave_deltas WHERE number = ?`, c.number); derr != nil {
			slog.Error("retention: remove catalog row", "delta", c.number, "error", derr)
		}

		count++
		bytesFreed += c.bytes
	}

	if count > 0 {
		slog.Info("retention: pruned weave deltas", "count", count, "bytes_freed", bytesFreed)
	}
	return count, bytesFreed, nil
}

// ErrDeltaAlreadyGone lets a DeltaRemover report "nothing to do" as
// success rather than a retryable failure.
var ErrDeltaAlreadyGone = errors.New("retention: delta already removed")
