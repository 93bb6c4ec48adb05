package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"crux/internal/adapters/http/perf"
)

// SQLDB is the query surface used by all stores.
// Both *sql.DB and *TimedDB satisfy this interface.
type SQLDB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Compile-time check that *sql.DB satisfies SQLDB.
var _ SQLDB = (*sql.DB)(nil)

// DB is the surface stores that need transactions or row locks depend on.
type DB interface {
	SQLDB
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
	LockRow(ctx context.Context, mode LockMode, table, where string, args ...any) error
	ExecNoWait(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DefaultSlowQueryMs is the default threshold for slow query warnings.
const DefaultSlowQueryMs = 50

var slowQueryMs int64
var slowQueryOnce sync.Once

// getSlowQueryThreshold returns the slow-query threshold in milliseconds.
func getSlowQueryThreshold() float64 {
	slowQueryOnce.Do(func() {
		ms := DefaultSlowQueryMs
		if v := os.Getenv("CRUX_SLOW_QUERY_MS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				ms = n
			}
		}
		atomic.StoreInt64(&slowQueryMs, int64(ms))
	})
	return float64(atomic.LoadInt64(&slowQueryMs))
}

// TimedDB wraps a *sql.DB for one SQL dialect. It rebinds placeholders,
// routes statements into the transaction carried by the context, maps
// driver errors onto storage sentinels, and logs slow queries.
type TimedDB struct {
	db        *sql.DB
	dialect   Dialect
	collector *perf.Collector
	threshold float64
	locks     *lockTable
}

// Compile-time check that *TimedDB satisfies DB.
var _ DB = (*TimedDB)(nil)

// NewTimedDB wraps a *sql.DB with timing instrumentation.
// PRE: db is a valid database connection opened for dialect
// POST: Returns a TimedDB that logs slow queries and records to collector
func NewTimedDB(db *sql.DB, dialect Dialect, collector *perf.Collector) *TimedDB {
	return &TimedDB{
		db:        db,
		dialect:   dialect,
		collector: collector,
		threshold: getSlowQueryThreshold(),
		locks:     newLockTable(),
	}
}

// RawDB returns the underlying *sql.DB (needed for migrations and pool config).
func (t *TimedDB) RawDB() *sql.DB {
	return t.db
}

// Dialect returns the SQL dialect of the wrapped connection.
func (t *TimedDB) Dialect() Dialect {
	return t.dialect
}

// logQuery logs and optionally records a query timing.
func (t *TimedDB) logQuery(op string, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0

	if durationMs >= t.threshold {
		slog.Warn("slow_query",
			"op", op,
			"dialect", string(t.dialect),
			"duration_ms", durationMs,
		)
	} else {
		slog.Debug("query",
			"op", op,
			"duration_ms", durationMs,
		)
	}

	if t.collector != nil {
		t.collector.Record(perf.Entry{
			Kind:       perf.KindQuery,
			Path:       op,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

// ExecContext executes query, inside ctx's transaction if there is one.
// PRE: ctx is valid, query is non-empty and uses '?' placeholders
// POST: query executed, driver errors translated, timing recorded
func (t *TimedDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	query = t.dialect.Rebind(query)
	start := time.Now()
	var result sql.Result
	var err error
	if st := txFromContext(ctx); st != nil {
		result, err = st.tx.ExecContext(ctx, query, args...)
	} else {
		result, err = t.db.ExecContext(ctx, query, args...)
	}
	t.logQuery("ExecContext", start)
	return result, TranslateError(err)
}

// QueryContext runs query, inside ctx's transaction if there is one.
// PRE: ctx is valid, query is non-empty and uses '?' placeholders
// POST: query executed, driver errors translated, timing recorded
func (t *TimedDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	query = t.dialect.Rebind(query)
	start := time.Now()
	var rows *sql.Rows
	var err error
	if st := txFromContext(ctx); st != nil {
		rows, err = st.tx.QueryContext(ctx, query, args...)
	} else {
		rows, err = t.db.QueryContext(ctx, query, args...)
	}
	t.logQuery("QueryContext", start)
	return rows, TranslateError(err)
}

// QueryRowContext runs query, inside ctx's transaction if there is one.
// Errors surface from Scan; pass them through TranslateError.
// PRE: ctx is valid, query is non-empty and uses '?' placeholders
// POST: query executed, timing recorded
func (t *TimedDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	query = t.dialect.Rebind(query)
	start := time.Now()
	var row *sql.Row
	if st := txFromContext(ctx); st != nil {
		row = st.tx.QueryRowContext(ctx, query, args...)
	} else {
		row = t.db.QueryRowContext(ctx, query, args...)
	}
	t.logQuery("QueryRowContext", start)
	return row
}

// noWaitGuards returns the statements that bracket a write so it fails
// instead of queueing behind another transaction's row lock. SQLite has a
// single writer and no row locks, so it needs none.
func noWaitGuards(d Dialect) (set, reset string) {
	if d == DialectPostgres {
		return "SET LOCAL lock_timeout = '1ms'", "SET LOCAL lock_timeout TO DEFAULT"
	}
	return "", ""
}

// ExecNoWait executes a write inside ctx's transaction without waiting on
// rows another transaction holds, including rows it inserted but has not
// committed yet.
// PRE: ctx carries a transaction from InTx
// POST: query executed, or ErrRowLocked / ErrNoTx returned
func (t *TimedDB) ExecNoWait(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if txFromContext(ctx) == nil {
		return nil, ErrNoTx
	}
	set, reset := noWaitGuards(t.dialect)
	if set != "" {
		if _, err := t.ExecContext(ctx, set); err != nil {
			return nil, err
		}
	}
	result, err := t.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if reset != "" {
		if _, err := t.ExecContext(ctx, reset); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// BeginTx starts a raw transaction. Stores use InTx instead.
// PRE: ctx is valid
// POST: transaction started, timing recorded to collector
func (t *TimedDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	start := time.Now()
	tx, err := t.db.BeginTx(ctx, opts)
	t.logQuery("BeginTx", start)
	return tx, err
}

// Close closes the underlying database connection.
func (t *TimedDB) Close() error {
	return t.db.Close()
}

// PingContext verifies the database connection.
// PRE: none
// POST: returns nil if connection is alive
func (t *TimedDB) PingContext(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

// SetMaxOpenConns sets the maximum number of open connections.
// PRE: n >= 0
// POST: pool limit updated
// INVARIANT: db is not nil
func (t *TimedDB) SetMaxOpenConns(n int) {
	t.db.SetMaxOpenConns(n)
}

// SetMaxIdleConns sets the maximum number of idle connections.
// PRE: n >= 0
// POST: idle pool limit updated
// INVARIANT: db is not nil
func (t *TimedDB) SetMaxIdleConns(n int) {
	t.db.SetMaxIdleConns(n)
}
