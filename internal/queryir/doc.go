// Package queryir is the backend-neutral query descriptor the translator
// builds from a query document.
//
// The descriptor is expressed in schema column handles, never in raw
// names from the document, so a descriptor can only reference columns the
// schema registry knows. Backends (internal/querysql) compile it to SQL.
//
//	[query document] → translator → [queryir.Select] → querysql → SQL + params
//
// SEALED INTERFACES:
//
// Projection and Predicate are sealed with marker methods. Backends switch
// exhaustively over their concrete types:
//
//	switch p := proj.(type) {
//	case Column:
//	    // column, COUNT(column), or an aliased expression
//	case Wildcard:
//	    // every column of a table
//	}
//
// RESULT SECTIONS:
//
// Every projection names the row section its value lands in. Plain columns
// land in their table's section under the column name. Count and alias
// expressions land in ExtraSection under their generated key, which is
// also the key the translator's alias registry maps to an output name.
//
// VALIDATION:
//
// Validate reports E2xx issues for descriptors that cannot execute and
// W2xx warnings for ones that execute with surprising results (such as a
// count with no grouping).
package queryir
