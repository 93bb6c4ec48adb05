package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func isConflict(err error) bool { return errors.Is(err, ErrConflict) }

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), ErrNotFound},
		{"pgx lock not available", &pgconn.PgError{Code: "55P03"}, ErrRowLocked},
		{"pgx unique violation", &pgconn.PgError{Code: "23505"}, ErrConflict},
		{"pq lock not available", &pq.Error{Code: "55P03"}, ErrRowLocked},
		{"pq unique violation", &pq.Error{Code: "23505"}, ErrConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("TranslateError(%v) = %v, want %v", tt.err, got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("original error not reachable from %v", got)
			}
		})
	}
}

func TestTranslateError_PassesThroughUnknown(t *testing.T) {
	other := &pgconn.PgError{Code: "42601"}
	if got := TranslateError(other); got != other {
		t.Errorf("TranslateError = %v, want unchanged", got)
	}
	if TranslateError(nil) != nil {
		t.Error("TranslateError(nil) must be nil")
	}
}

func TestDialect_Rebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = 'x' AND c IN (?, ?)"
	if got := DialectSQLite.Rebind(q); got != q {
		t.Errorf("sqlite Rebind changed query: %q", got)
	}
	want := "SELECT * FROM t WHERE a = $1 AND b = 'x' AND c IN ($2, $3)"
	if got := DialectPostgres.Rebind(q); got != want {
		t.Errorf("postgres Rebind = %q, want %q", got, want)
	}
}

func TestDialectForDriver(t *testing.T) {
	for driver, want := range map[string]Dialect{"sqlite": DialectSQLite, "pgx": DialectPostgres, "postgres": DialectPostgres} {
		got, err := DialectForDriver(driver)
		if err != nil || got != want {
			t.Errorf("DialectForDriver(%q) = %q, %v", driver, got, err)
		}
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
