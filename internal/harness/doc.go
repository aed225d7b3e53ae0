// Package harness runs query scenarios: YAML files that describe a schema,
// the SQL that seeds it, one query document and the rows (or error) it must
// produce.
//
// Each scenario runs against a fresh in-memory SQLite database with a fixed
// run ID, so its output is byte-stable and can be compared against golden
// files.
//
//	name: active_users
//	description: "active users, name exposed as uname"
//	schema: |
//	  table: users: {id: "integer", name: "text", active: "boolean"}
//	setup:
//	  - CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, active BOOLEAN)
//	  - INSERT INTO users VALUES (1, 'Alice', 1), (2, 'Bob', 0)
//	query:
//	  fields:
//	    - table: users
//	      fields: [{field: id}, {field: name, alias: uname}]
//	  where:
//	    - table: users
//	      conditions: [{field: active, value: true}]
//	  merge: true
//	expect:
//	  count: 1
//	  rows:
//	    - {id: 1, uname: Alice}
package harness
