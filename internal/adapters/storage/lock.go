package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// LockMode selects whether LockRow fails fast or waits for a held lock.
type LockMode int

const (
	// LockNoWait fails with ErrRowLocked when another transaction holds the row.
	LockNoWait LockMode = iota
	// LockWait blocks until the row is free or ctx is done.
	LockWait
)

// LockRow takes an exclusive lock on the row of table matching where, held
// until the surrounding transaction ends.
//
// PostgreSQL uses SELECT ... FOR UPDATE [NOWAIT]. SQLite has no row locks,
// so an in-process keyed lock table gives the same semantics for every
// transaction opened through this TimedDB.
// PRE: ctx carries a transaction from InTx; where uses '?' placeholders
// POST: Lock held, or ErrRowLocked / ErrNotFound / ctx error returned
func (t *TimedDB) LockRow(ctx context.Context, mode LockMode, table, where string, args ...any) error {
	st := txFromContext(ctx)
	if st == nil {
		return ErrNoTx
	}

	if t.dialect == DialectPostgres {
		query := "SELECT 1 FROM " + table + " WHERE " + where + " FOR UPDATE"
		if mode == LockNoWait {
			query += " NOWAIT"
		}
		var one int
		return TranslateError(t.QueryRowContext(ctx, query, args...).Scan(&one))
	}

	key := lockKey(table, args)
	if !st.held[key] {
		release, err := t.locks.acquire(ctx, key, mode == LockWait)
		if err != nil {
			return err
		}
		st.held[key] = true
		st.releases = append(st.releases, release)
	}
	var one int
	return TranslateError(t.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE "+where, args...).Scan(&one))
}

func lockKey(table string, args []any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, table)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, "\x00")
}

// lockTable is a set of named exclusive locks.
type lockTable struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{held: make(map[string]chan struct{})}
}

// acquire takes key, waiting for the current holder only when wait is set.
// The returned func releases the key and wakes waiters.
func (l *lockTable) acquire(ctx context.Context, key string, wait bool) (func(), error) {
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			ch = make(chan struct{})
			l.held[key] = ch
			l.mu.Unlock()
			return func() {
				l.mu.Lock()
				delete(l.held, key)
				l.mu.Unlock()
				close(ch)
			}, nil
		}
		l.mu.Unlock()

		if !wait {
			return nil, ErrRowLocked
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
