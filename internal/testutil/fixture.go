// Package testutil holds shared test fixtures: a small users/orders
// database and deterministic generators.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/jsonquery/internal/schema"
)

// SchemaSQL creates the fixture tables.
const SchemaSQL = `
CREATE TABLE users (
	id     INTEGER PRIMARY KEY,
	name   TEXT NOT NULL,
	email  TEXT,
	age    INTEGER,
	active BOOLEAN NOT NULL DEFAULT 1
);
CREATE TABLE orders (
	id      INTEGER PRIMARY KEY,
	user_id INTEGER REFERENCES users(id),
	item    TEXT NOT NULL,
	total   REAL NOT NULL
);
`

// SeedSQL inserts the fixture rows. Dee has no orders, so a left join from
// users keeps her with a nil orders section.
const SeedSQL = `
INSERT INTO users (id, name, email, age, active) VALUES
	(1, 'Alice', 'alice@example.com', 34, 1),
	(2, 'Bob', NULL, 19, 0),
	(3, 'Carol', 'carol@example.org', 27, 1),
	(4, 'Dee', 'dee@example.com', 41, 1);
INSERT INTO orders (id, user_id, item, total) VALUES
	(10, 1, 'lamp', 20.5),
	(11, 1, 'desk', 150),
	(12, 2, 'pen_set', 4.25),
	(13, 3, 'chair', 80);
`

// SchemaCUE is the fixture schema as a CUE registry document.
const SchemaCUE = `
table: users: {
	id:     "integer"
	name:   "text"
	email:  "text"
	age:    "integer"
	active: "boolean"
}
table: orders: {
	id:      "integer"
	user_id: "integer"
	item:    "text"
	total:   "real"
}
`

// Registry parses SchemaCUE.
func Registry(t testing.TB) *schema.Registry {
	t.Helper()
	reg, err := schema.ParseCUE(SchemaCUE)
	require.NoError(t, err)
	return reg
}
