package data

import "fmt"

// Dialect names the database/sql driver a store talks to.
type Dialect string

const (
	DialectPostgres Dialect = "pgx"
	DialectSQLite   Dialect = "sqlite3"
)

// ParseDialect validates a driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch Dialect(driver) {
	case DialectPostgres, DialectSQLite:
		return Dialect(driver), nil
	case "":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// advisoryLocks reports whether the dialect supports pg_try_advisory_xact_lock.
// SQLite serializes writers itself.
func (d Dialect) advisoryLocks() bool {
	return d == DialectPostgres
}
