package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	name     string
	numbered bool // $1, $2 placeholders instead of ?
}

var (
	// SQLite uses ? placeholders and emulates DISTINCT ON with GROUP BY.
	SQLite = Dialect{name: "sqlite"}

	// Postgres uses $n placeholders and native DISTINCT ON.
	Postgres = Dialect{name: "postgres", numbered: true}
)

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver %q (want sqlite3 or pgx)", driver)
	}
}

// String returns the dialect name.
func (d Dialect) String() string {
	return d.name
}

// Placeholder returns the n-th (1-based) bind placeholder.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// QuoteIdent quotes an identifier. Both dialects accept ANSI double quotes.
func (d Dialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
