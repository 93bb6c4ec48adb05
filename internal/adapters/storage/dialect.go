package storage

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Dialect identifies the SQL engine behind a TimedDB.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectForDriver maps a database/sql driver name to its dialect.
// PRE: driver is one of "sqlite", "pgx", "postgres"
// POST: Returns the dialect or an error for unknown drivers
func DialectForDriver(driver string) (Dialect, error) {
	switch driver {
	case "sqlite":
		return DialectSQLite, nil
	case "pgx", "postgres":
		return DialectPostgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

// Rebind rewrites '?' placeholders to the dialect's bind syntax.
// Queries must not contain a literal '?'.
func (d Dialect) Rebind(query string) string {
	return sqlx.Rebind(d.bindType(), query)
}

func (d Dialect) bindType() int {
	if d == DialectPostgres {
		return sqlx.DOLLAR
	}
	return sqlx.QUESTION
}
