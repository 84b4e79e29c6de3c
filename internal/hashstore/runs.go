package hashstore

import (
	"context"
	"fmt"
	"time"
)

// InsertRunStarted records a new hash_runs row in the 'running' state
// under id, a caller-supplied UUID string.
func (s *Store) InsertRunStarted(ctx context.Context, id, root string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO hash_runs (id, root, started_at, status)
		VALUES (?, ?, ?, 'running')`,
		id, root, startedAt.Unix())
	if err != nil {
		return fmt.Errorf("hashstore: insert run %s: %w", id, err)
	}
	return nil
}

// FinishRun marks a run as completed with its final progress totals.
func (s *Store) FinishRun(ctx context.Context, id string, finishedAt time.Time, filesTotal, bytesTotal int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE hash_runs
		SET status = 'completed', finished_at = ?, files_total = ?, bytes_total = ?
		WHERE id = ?`,
		finishedAt.Unix(), filesTotal, bytesTotal, id)
	if err != nil {
		return fmt.Errorf("hashstore: finish run %s: %w", id, err)
	}
	return nil
}

// FailRun marks a run as failed, recording the error message.
func (s *Store) FailRun(ctx context.Context, id string, finishedAt time.Time, cause error) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE hash_runs
		SET status = 'failed', finished_at = ?, error = ?
		WHERE id = ?`,
		finishedAt.Unix(), cause.Error(), id)
	if err != nil {
		return fmt.Errorf("hashstore: fail run %s: %w", id, err)
	}
	return nil
}

// MarkStaleRunsFailed marks any hash_runs rows still 'running' as
// 'failed'. Call once at startup in case a previous process crashed
// mid-run.
func MarkStaleRunsFailed(ctx context.Context, s *Store, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE hash_runs SET status = 'failed', finished_at = ?, error = 'process restarted mid-run'
		WHERE status = 'running'`,
		now.Unix())
	if err != nil {
		return fmt.Errorf("hashstore: mark stale runs failed: %w", err)
	}
	return nil
}
