package hashstore_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/kvasari/surehash/internal/db"
	"github.com/kvasari/surehash/internal/hashstore"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", "file:"+t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := db.RunMigrations(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func TestStoreInsertAndCommit(t *testing.T) {
	conn := openTestDB(t)
	store := hashstore.New(conn)

	run, err := store.BeginRun(context.Background())
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	var sum [20]byte
	copy(sum[:], "01234567890123456789")
	if err := run.Insert(context.Background(), 5, sum); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := run.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := run.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	rows, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Index != 5 || rows[0].Sha1 != sum {
		t.Fatalf("row mismatch: %+v", rows[0])
	}
}

func TestStoreAbortRollsBack(t *testing.T) {
	conn := openTestDB(t)
	store := hashstore.New(conn)

	run, err := store.BeginRun(context.Background())
	if err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	var sum [20]byte
	if err := run.Insert(context.Background(), 0, sum); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	run.Finalize()
	run.Abort()

	rows, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected an aborted run to leave no rows, got %d", len(rows))
	}
}
