package store

import (
	"context"
	"fmt"

	"github.com/roach88/jsonquery/internal/querysql"
	"github.com/roach88/jsonquery/internal/schema"
)

// Schema builds a registry from the live database catalog. Tables are
// ordered by name, columns by declaration order.
func (s *Store) Schema(ctx context.Context) (*schema.Registry, error) {
	if s.dialect == querysql.Postgres {
		return s.postgresSchema(ctx)
	}
	return s.sqliteSchema(ctx)
}

func (s *Store) sqliteSchema(ctx context.Context) (*schema.Registry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	reg := schema.NewRegistry()
	for _, table := range tables {
		cols, err := s.sqliteColumns(ctx, table)
		if err != nil {
			return nil, err
		}
		if err := reg.Define(table, cols...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (s *Store) sqliteColumns(ctx context.Context, table string) ([]schema.Column, error) {
	// PRAGMA arguments cannot be bound; the name comes from sqlite_master.
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+s.dialect.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    any
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info %s: %w", table, err)
		}
		cols = append(cols, schema.Column{Name: name, Type: schema.NormalizeType(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table_info %s: %w", table, err)
	}
	return cols, nil
}

func (s *Store) postgresSchema(ctx context.Context) (*schema.Registry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT table_name, column_name, data_type
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		ORDER BY table_name, ordinal_position
	`)
	if err != nil {
		return nil, fmt.Errorf("query information_schema: %w", err)
	}
	defer rows.Close()

	var (
		order  []string
		byName = make(map[string][]schema.Column)
	)
	for rows.Next() {
		var table, name, typ string
		if err := rows.Scan(&table, &name, &typ); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if _, seen := byName[table]; !seen {
			order = append(order, table)
		}
		byName[table] = append(byName[table], schema.Column{Name: name, Type: schema.NormalizeType(typ)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	reg := schema.NewRegistry()
	for _, table := range order {
		if err := reg.Define(table, byName[table]...); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
