// Package store executes compiled queries against SQLite (mattn/go-sqlite3)
// or PostgreSQL (pgx through database/sql) and decodes result rows into
// table sections.
//
// # Row Sections
//
// Each result column lands in the section named by its projection: the
// owning table for plain columns, "_extra" for count and alias
// expressions. A left-joined table whose columns are all NULL in a row had
// no matching record; its section is nil rather than an object of nulls.
//
// # Value Decoding
//
// Cells decode by registry column type. SQLite has no boolean storage
// class, so integer cells of boolean columns decode as ir.Bool. Timestamps
// decode as RFC 3339 strings, blobs as standard base64 strings.
//
// # Database Configuration
//
// SQLite connections use WAL mode, a 5-second busy timeout, foreign key
// enforcement and a single open connection. PostgreSQL connections use
// the database/sql pool defaults.
package store
