package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/sqlagen/internal/schema"
)

// PostgresExtractor reflects one PostgreSQL schema through the system
// catalogs, keeping raw types as format_type prints them.
type PostgresExtractor struct {
	client *PostgresClient
	schema string
}

// NewPostgresExtractor creates an extractor for schemaName, "public" when empty.
func NewPostgresExtractor(client *PostgresClient, schemaName string) *PostgresExtractor {
	if schemaName == "" {
		schemaName = DefaultPostgresSchema
	}
	return &PostgresExtractor{client: client, schema: schemaName}
}

// ExtractSchema extracts the tables (and views) of the schema in name order.
func (e *PostgresExtractor) ExtractSchema(ctx context.Context, opts ExtractOptions) (*schema.Schema, error) {
	refs, err := e.listTables(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	s := &schema.Schema{Dialect: DialectPostgres, Name: e.schema}
	for _, ref := range refs {
		table, err := e.extractTable(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", ref.name, err)
		}
		s.Tables = append(s.Tables, *table)
	}
	return s, nil
}

// qualifier returns the schema to print for tables of namespace ns.
func (e *PostgresExtractor) qualifier(ns string) string {
	if ns == DefaultPostgresSchema {
		return ""
	}
	return ns
}

type tableRef struct {
	name    string
	view    bool
	comment string
}

func (e *PostgresExtractor) listTables(ctx context.Context, opts ExtractOptions) ([]tableRef, error) {
	query := `
		SELECT c.relname, c.relkind IN ('v', 'm'), COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind IN ('r', 'p', 'v', 'm')
		ORDER BY c.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	only := wanted(opts.Tables)
	var refs []tableRef
	for rows.Next() {
		var ref tableRef
		if err := rows.Scan(&ref.name, &ref.view, &ref.comment); err != nil {
			return nil, err
		}
		if (only != nil && !only[ref.name]) || (ref.view && opts.NoViews) {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (e *PostgresExtractor) extractTable(ctx context.Context, ref tableRef) (*schema.Table, error) {
	table := &schema.Table{
		Name:    ref.name,
		Schema:  e.qualifier(e.schema),
		Comment: nonEmpty(ref.comment),
		IsView:  ref.view,
	}

	columns, err := e.extractColumns(ctx, ref.name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	table.Columns = columns
	if ref.view {
		return table, nil
	}

	if err := e.extractConstraints(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract constraints: %w", err)
	}

	indexes, err := e.extractIndexes(ctx, ref.name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	return table, nil
}

func (e *PostgresExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT
			a.attname,
			format_type(a.atttypid, a.atttypmod),
			NOT a.attnotnull,
			pg_get_expr(d.adbin, d.adrelid),
			col_description(c.oid, a.attnum),
			a.attidentity <> '',
			t.typtype = 'e',
			t.typname,
			ARRAY(SELECT e.enumlabel FROM pg_enum e WHERE e.enumtypid = t.oid ORDER BY e.enumsortorder)
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_type t ON t.oid = a.atttypid
		LEFT JOIN pg_attrdef d ON d.adrelid = a.attrelid AND d.adnum = a.attnum
		WHERE n.nspname = $1 AND c.relname = $2 AND a.attnum > 0 AND NOT a.attisdropped
		ORDER BY a.attnum
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var identity, isEnum bool
		var typeName string
		var labels []string

		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.DefaultValue, &col.Comment,
			&identity, &isEnum, &typeName, &labels); err != nil {
			return nil, err
		}

		col.Autoincrement = identity ||
			(col.DefaultValue != nil && strings.HasPrefix(*col.DefaultValue, "nextval("))
		if isEnum {
			col.EnumValues = labels
			col.EnumName = typeName
		}
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// fkActions maps pg_constraint action codes to SQL. "a" (no action) is
// the default and left empty.
var fkActions = map[string]string{
	"r": "RESTRICT",
	"c": "CASCADE",
	"n": "SET NULL",
	"d": "SET DEFAULT",
}

// extractConstraints fills the primary key, foreign keys, unique and
// check constraints of table.
func (e *PostgresExtractor) extractConstraints(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			con.conname,
			con.contype::text,
			ARRAY(
				SELECT a.attname
				FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum
				ORDER BY k.ord
			),
			COALESCE(fn.nspname, ''),
			COALESCE(fc.relname, ''),
			ARRAY(
				SELECT a.attname
				FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
				JOIN pg_attribute a ON a.attrelid = con.confrelid AND a.attnum = k.attnum
				ORDER BY k.ord
			),
			con.confdeltype::text,
			con.confupdtype::text,
			pg_get_constraintdef(con.oid)
		FROM pg_constraint con
		JOIN pg_class c ON c.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		LEFT JOIN pg_class fc ON fc.oid = con.confrelid
		LEFT JOIN pg_namespace fn ON fn.oid = fc.relnamespace
		WHERE n.nspname = $1 AND c.relname = $2 AND con.contype IN ('p', 'f', 'u', 'c')
		ORDER BY con.conname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, kind, targetNS, targetTable, onDelete, onUpdate, def string
		var cols, targetCols []string

		if err := rows.Scan(&name, &kind, &cols, &targetNS, &targetTable, &targetCols, &onDelete, &onUpdate, &def); err != nil {
			return err
		}

		switch kind {
		case "p":
			table.PrimaryKey = cols
			table.PrimaryKeyName = name
		case "f":
			table.ForeignKeys = append(table.ForeignKeys, schema.ForeignKey{
				Name:          name,
				Columns:       cols,
				TargetSchema:  e.qualifier(targetNS),
				TargetTable:   targetTable,
				TargetColumns: targetCols,
				OnDelete:      fkActions[onDelete],
				OnUpdate:      fkActions[onUpdate],
			})
		case "u":
			table.Uniques = append(table.Uniques, schema.Unique{Name: name, Columns: cols})
		case "c":
			table.Checks = append(table.Checks, schema.Check{Name: name, Expression: checkExpression(def)})
		}
	}

	return rows.Err()
}

// checkExpression strips the CHECK (...) wrapper of pg_get_constraintdef.
func checkExpression(def string) string {
	def = strings.TrimSuffix(strings.TrimSpace(def), " NOT VALID")
	if strings.HasPrefix(def, "CHECK (") && strings.HasSuffix(def, ")") {
		return def[len("CHECK (") : len(def)-1]
	}
	return def
}

// extractIndexes returns the indexes not backing a constraint. Expression
// indexes are skipped.
func (e *PostgresExtractor) extractIndexes(ctx context.Context, tableName string) ([]schema.Index, error) {
	query := `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS column_names
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = $1
			AND t.relname = $2
			AND NOT ix.indisprimary
			AND NOT (0 = ANY(ix.indkey))
			AND NOT EXISTS (SELECT 1 FROM pg_constraint con WHERE con.conindid = ix.indexrelid)
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`

	rows, err := e.client.GetConnection().Query(ctx, query, e.schema, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []schema.Index
	for rows.Next() {
		var idx schema.Index
		if err := rows.Scan(&idx.Name, &idx.IsUnique, &idx.Columns); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return indexes, rows.Err()
}
