package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"
)

type txKey struct{}

// txState is the open transaction carried in a context, plus the
// in-process row locks it holds.
type txState struct {
	tx       *sql.Tx
	held     map[string]bool
	releases []func()
}

func txFromContext(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

// InTransaction reports whether ctx carries an open transaction.
func InTransaction(ctx context.Context) bool {
	return txFromContext(ctx) != nil
}

func (st *txState) releaseLocks() {
	for i := len(st.releases) - 1; i >= 0; i-- {
		st.releases[i]()
	}
	st.releases = nil
}

// InTx runs fn inside a transaction. Queries issued through this TimedDB
// with the context passed to fn join the transaction. A nested InTx joins
// the outer transaction instead of opening a new one.
// PRE: fn does not retain ctx after returning
// POST: Transaction committed if fn returned nil, rolled back otherwise;
// row locks taken with LockRow are released after commit or rollback
func (t *TimedDB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := t.BeginTx(ctx, nil)
	if err != nil {
		return TranslateError(err)
	}
	st := &txState{tx: tx, held: make(map[string]bool)}
	defer st.releaseLocks()
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, st)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Warn("tx_rollback_failed", "error", rbErr)
		}
		return err
	}
	start := time.Now()
	err = tx.Commit()
	t.logQuery("Commit", start)
	return TranslateError(err)
}
