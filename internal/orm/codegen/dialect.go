package codegen

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Dialect selects the SQL flavour used for DDL and queries.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

// String returns the string representation of the dialect
func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// DialectForDriver returns the dialect spoken by a database/sql driver.
func DialectForDriver(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	default:
		return 0, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

// Placeholder returns the bind parameter for the n-th argument (1-based).
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Placeholders returns count bind parameters starting at start.
func (d Dialect) Placeholders(start, count int) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = d.Placeholder(start + i)
	}
	return out
}

// QuoteIdentifier quotes a table or column name. Both dialects use
// standard double-quoted identifiers.
func QuoteIdentifier(identifier string) string {
	return pq.QuoteIdentifier(identifier)
}

// QuoteLiteral quotes a string literal.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
