// Package storagetest opens migrated SQLite databases for store and
// orchestrator tests.
package storagetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"strconv"
	"testing"

	_ "modernc.org/sqlite"

	"crux/internal/adapters/storage"
)

// dsnPragmas match the server's SQLite settings.
const dsnPragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"

// OpenDB returns a migrated TimedDB backed by a file in t.TempDir().
// A file is used rather than ":memory:" so that concurrent transactions
// share one database.
func OpenDB(t *testing.T) *storage.TimedDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crux.db")
	raw, err := sql.Open("sqlite", path+dsnPragmas)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { raw.Close() })

	if err := storage.MigrateDB(context.Background(), raw, storage.DialectSQLite); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	return storage.NewTimedDB(raw, storage.DialectSQLite, nil)
}

// MustExec runs a seeding statement and fails the test on error.
func MustExec(t *testing.T, db storage.SQLDB, query string, args ...any) {
	t.Helper()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// SeedCohort inserts a cohort row with dates in YYYY-MM-DD form.
func SeedCohort(t *testing.T, db storage.SQLDB, id string, number int, start, end string) {
	t.Helper()
	MustExec(t, db, "INSERT INTO cohort (id, number, name, start_date, end_date) VALUES (?, ?, ?, ?, ?)",
		id, number, strconv.Itoa(number)+"기", start, end)
}

// SeedMember inserts an active member at level 5.
func SeedMember(t *testing.T, db storage.SQLDB, id, role, location, cohortID string) {
	t.Helper()
	MustExec(t, db, "INSERT INTO member (id, name, email, role, home_location, cohort_id, level, active) VALUES (?, ?, ?, ?, ?, ?, 5, 1)",
		id, "member "+id, id+"@example.com", role, location, cohortID)
}
