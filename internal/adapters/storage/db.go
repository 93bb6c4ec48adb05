package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// migration is one forward-only schema step. Statements are portable
// between SQLite and PostgreSQL.
type migration struct {
	version    int
	name       string
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "cohorts_schedules_roster",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS cohort (
				id TEXT PRIMARY KEY,
				number INTEGER NOT NULL UNIQUE,
				name TEXT NOT NULL,
				start_date TEXT NOT NULL,
				end_date TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_cohort_window ON cohort(start_date, end_date)`,
			`CREATE TABLE IF NOT EXISTS schedule_entry (
				id TEXT PRIMARY KEY,
				cohort_id TEXT NOT NULL REFERENCES cohort(id),
				day TEXT NOT NULL,
				location TEXT NOT NULL,
				start_time TEXT NOT NULL,
				staff_id TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_schedule_cohort_day ON schedule_entry(cohort_id, day)`,
			`CREATE TABLE IF NOT EXISTS blackout_date (
				id TEXT PRIMARY KEY,
				date TEXT NOT NULL UNIQUE,
				reason TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE TABLE IF NOT EXISTS member (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				role TEXT NOT NULL,
				home_location TEXT NOT NULL,
				cohort_id TEXT NOT NULL REFERENCES cohort(id),
				level INTEGER NOT NULL,
				active INTEGER NOT NULL DEFAULT 1
			)`,
			`CREATE INDEX IF NOT EXISTS idx_member_location ON member(home_location)`,
		},
	},
	{
		version: 2,
		name:    "attendance",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS attendance_request (
				id TEXT PRIMARY KEY,
				member_id TEXT NOT NULL REFERENCES member(id),
				cohort_id TEXT NOT NULL REFERENCES cohort(id),
				week INTEGER NOT NULL,
				location TEXT NOT NULL,
				request_time TEXT NOT NULL,
				request_date TEXT NOT NULL,
				status TEXT NOT NULL,
				processed_at TEXT,
				processed_by TEXT,
				outcome TEXT,
				alternate INTEGER NOT NULL DEFAULT 0
			)`,
			// At most one live request per member and week.
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_live_week
				ON attendance_request(member_id, cohort_id, week)
				WHERE status IN ('pending', 'approved')`,
			`CREATE INDEX IF NOT EXISTS idx_attendance_status_date ON attendance_request(status, request_date)`,
			`CREATE TABLE IF NOT EXISTS attendance_stats (
				member_id TEXT NOT NULL REFERENCES member(id),
				cohort_id TEXT NOT NULL REFERENCES cohort(id),
				on_time_count INTEGER NOT NULL DEFAULT 0,
				late_count INTEGER NOT NULL DEFAULT 0,
				absent_count INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (member_id, cohort_id)
			)`,
		},
	},
	{
		version: 3,
		name:    "activity_and_ranking",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS climb_session (
				id TEXT PRIMARY KEY,
				member_id TEXT NOT NULL REFERENCES member(id),
				cohort_id TEXT REFERENCES cohort(id),
				location TEXT NOT NULL,
				start_time TEXT NOT NULL,
				end_time TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_session_member ON climb_session(member_id, start_time)`,
			`CREATE TABLE IF NOT EXISTS problem (
				id TEXT PRIMARY KEY,
				session_id TEXT NOT NULL REFERENCES climb_session(id) ON DELETE CASCADE,
				difficulty INTEGER NOT NULL,
				solved INTEGER NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_problem_session ON problem(session_id)`,
			`CREATE TABLE IF NOT EXISTS score_entry (
				member_id TEXT NOT NULL REFERENCES member(id),
				cohort_id TEXT NOT NULL REFERENCES cohort(id),
				week INTEGER NOT NULL,
				score DOUBLE PRECISION NOT NULL,
				PRIMARY KEY (member_id, cohort_id, week)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_score_cohort_week ON score_entry(cohort_id, week, score)`,
		},
	},
}

// LatestSchemaVersion is the version MigrateDB brings a database to.
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// MigrateDB applies every pending migration, each in its own transaction.
// PRE: db is a valid connection for dialect
// POST: schema_version holds LatestSchemaVersion; reruns are no-ops
func MigrateDB(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if dialect == DialectSQLite {
		// Enable foreign key enforcement
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := applyMigration(ctx, db, dialect, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
		}
		slog.Info("schema_migrated", "version", m.version, "name", m.name)
	}
	return nil
}

// SchemaVersion returns the highest applied migration, 0 for a fresh database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func applyMigration(ctx context.Context, db *sql.DB, dialect Dialect, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		dialect.Rebind("INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)"),
		m.version, m.name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}
	return tx.Commit()
}
