package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Storage errors shared by every store. Callers match them with errors.Is.
var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("unique constraint violated")
	ErrRowLocked = errors.New("row is locked by another transaction")
	ErrNoTx      = errors.New("operation requires a transaction")
)

// PostgreSQL SQLSTATE codes
const (
	pgLockNotAvailable = "55P03"
	pgUniqueViolation  = "23505"
)

// TranslateError maps driver-specific errors onto the storage sentinels.
// The driver error stays reachable through errors.As.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return translateSQLState(pgErr.Code, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return translateSQLState(string(pqErr.Code), err)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		// Extended codes carry the primary code in the low byte.
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", ErrRowLocked, err)
		}
	}
	return err
}

func translateSQLState(code string, err error) error {
	switch code {
	case pgLockNotAvailable:
		return fmt.Errorf("%w: %w", ErrRowLocked, err)
	case pgUniqueViolation:
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
