// Package hashstore persists the hash records produced by the hashing
// pipeline into the embedded SQL database. Spec §6 treats the SQL layer as
// an opaque key/value blob store ("hashes(index INTEGER, sha1 BLOB)"); this
// package is the one piece of code that knows that schema.
package hashstore

import (
	"context"
	"database/sql"
	"fmt"
)

// Store wraps the shared *sql.DB handle used for hash persistence.
type Store struct {
	db *sql.DB
}

// New wraps db. db is expected to already have migrations applied
// (internal/db.RunMigrations).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Run is one open transaction plus its prepared insert statement — the
// scope spec §4.6/§4.8 describes ("opens one prepared insert statement
// against the currently open transaction"). Exactly one Run is open for
// the duration of a single hash-update driver invocation.
type Run struct {
	tx   *sql.Tx
	stmt *sql.Stmt
}

// BeginRun opens the single transaction the hash-update driver runs
// inside and prepares the insert statement the direct and threaded
// hashers both bind to (spec §4.6). The transaction is SQLite's default
// deferred kind: no EXCLUSIVE lock is taken when it begins.
func (s *Store) BeginRun(ctx context.Context) (*Run, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("hashstore: begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO hashes (idx, sha1) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("hashstore: prepare insert: %w", err)
	}
	return &Run{tx: tx, stmt: stmt}, nil
}

// Insert binds and steps the prepared insert statement for one hash
// record. Any SQL error other than a clean step is fatal (spec §4.6,
// §7: "SQL step returned non-DONE — fatal").
func (r *Run) Insert(ctx context.Context, idx uint64, sha1 [20]byte) error {
	if _, err := r.stmt.ExecContext(ctx, int64(idx), sha1[:]); err != nil {
		return fmt.Errorf("hashstore: insert idx=%d: %w", idx, err)
	}
	return nil
}

// Finalize releases the prepared statement (spec §4.6's "finalize
// releases the statement"). It does not commit or roll back the
// transaction — callers control that separately via Commit/Abort.
func (r *Run) Finalize() error {
	return r.stmt.Close()
}

// Commit commits the run's transaction.
func (r *Run) Commit() error {
	if err := r.tx.Commit(); err != nil {
		return fmt.Errorf("hashstore: commit: %w", err)
	}
	return nil
}

// Abort rolls back the run's transaction. Safe to call after Commit has
// already been attempted; sql.Tx.Rollback on a finished tx is a no-op
// error that Abort swallows.
func (r *Run) Abort() {
	_ = r.tx.Rollback()
}

// Row is one persisted hash record, used by tests and diagnostics.
type Row struct {
	Index uint64
	Sha1  [20]byte
}

// All returns every row currently in the hashes table, ordered by idx.
// Intended for tests; production code has no reason to read the whole
// table back.
func (s *Store) All(ctx context.Context) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, sha1 FROM hashes ORDER BY idx`)
	if err != nil {
		return nil, fmt.Errorf("hashstore: query all: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var idx int64
		var sha1 []byte
		if err := rows.Scan(&idx, &sha1); err != nil {
			return nil, fmt.Errorf("hashstore: scan row: %w", err)
		}
		var rec Row
		rec.Index = uint64(idx)
		copy(rec.Sha1[:], sha1)
		out = append(out, rec)
	}
	return out, rows.Err()
}
