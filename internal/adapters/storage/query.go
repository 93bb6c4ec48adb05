package storage

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Select runs query and scans every row into dest, a pointer to a slice of
// structs whose fields carry db tags naming the selected columns.
// POST: dest holds one element per row; driver errors are translated
func Select(ctx context.Context, db SQLDB, dest any, query string, args ...any) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return TranslateError(err)
	}
	return TranslateError(sqlx.StructScan(rows, dest))
}

// Get runs query and scans its first row into a T.
// POST: Returns ErrNotFound when the query yields no rows
func Get[T any](ctx context.Context, db SQLDB, query string, args ...any) (T, error) {
	var rows []T
	if err := Select(ctx, db, &rows, query, args...); err != nil {
		var zero T
		return zero, err
	}
	if len(rows) == 0 {
		var zero T
		return zero, ErrNotFound
	}
	return rows[0], nil
}
