package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/tordrt/sqlagen/internal/schema"
)

// MySQLExtractor reflects one MySQL database through information_schema.
type MySQLExtractor struct {
	client     *MySQLClient
	schemaName string
	// defaultSchema is the database of the connection; its tables stay
	// unqualified.
	defaultSchema string
}

// NewMySQLExtractor creates an extractor for schemaName. Tables of
// defaultSchema are not schema qualified.
func NewMySQLExtractor(client *MySQLClient, schemaName, defaultSchema string) *MySQLExtractor {
	if schemaName == "" {
		schemaName = defaultSchema
	}
	return &MySQLExtractor{
		client:        client,
		schemaName:    schemaName,
		defaultSchema: defaultSchema,
	}
}

// ExtractSchema extracts the tables (and views) of the database in name order.
func (e *MySQLExtractor) ExtractSchema(ctx context.Context, opts ExtractOptions) (*schema.Schema, error) {
	refs, err := e.listTables(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	s := &schema.Schema{Dialect: DialectMySQL, Name: e.schemaName}
	for _, ref := range refs {
		table, err := e.extractTable(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", ref.name, err)
		}
		s.Tables = append(s.Tables, *table)
	}
	return s, nil
}

func (e *MySQLExtractor) qualifier(db string) string {
	if db == e.defaultSchema {
		return ""
	}
	return db
}

func (e *MySQLExtractor) listTables(ctx context.Context, opts ExtractOptions) ([]tableRef, error) {
	query := `
		SELECT table_name, table_type = 'VIEW', COALESCE(table_comment, '')
		FROM information_schema.tables
		WHERE table_schema = ?
		ORDER BY table_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName)
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
		// Views carry "VIEW" as their comment.
		if ref.view {
			ref.comment = ""
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (e *MySQLExtractor) extractTable(ctx context.Context, ref tableRef) (*schema.Table, error) {
	table := &schema.Table{
		Name:    ref.name,
		Schema:  e.qualifier(e.schemaName),
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

	checks, err := e.extractChecks(ctx, ref.name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract check constraints: %w", err)
	}
	table.Checks = checks

	indexes, err := e.extractIndexes(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}
	table.Indexes = indexes

	return table, nil
}

func (e *MySQLExtractor) extractColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	query := `
		SELECT column_name, column_type, is_nullable, column_default, extra, column_comment
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var col schema.Column
		var nullable, extra, comment string
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &col.Type, &nullable, &defaultVal, &extra, &comment); err != nil {
			return nil, err
		}

		col.Nullable = nullable == "YES"
		col.Comment = nonEmpty(comment)
		extra = strings.ToLower(extra)
		col.Autoincrement = strings.Contains(extra, "auto_increment")
		if defaultVal.Valid {
			def := mysqlDefault(defaultVal.String, extra)
			col.DefaultValue = &def
		}
		columns = append(columns, col)
	}

	return columns, rows.Err()
}

// mysqlDefault turns a COLUMN_DEFAULT value into a SQL expression.
// information_schema reports literal strings without quotes.
func mysqlDefault(value, extra string) string {
	if strings.Contains(extra, "default_generated") {
		return value
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return value
	}
	switch strings.ToUpper(value) {
	case "NULL", "CURRENT_TIMESTAMP":
		return value
	}
	if strings.HasPrefix(strings.ToUpper(value), "CURRENT_TIMESTAMP(") {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// mysqlDefaultAction reports referential actions MySQL applies anyway.
func mysqlDefaultAction(rule string) string {
	switch rule {
	case "", "RESTRICT", "NO ACTION":
		return ""
	}
	return rule
}

// extractConstraints fills the primary key, foreign keys and unique
// constraints. Rows arrive grouped by constraint in column order.
func (e *MySQLExtractor) extractConstraints(ctx context.Context, table *schema.Table) error {
	query := `
		SELECT
			tc.constraint_name,
			tc.constraint_type,
			kcu.column_name,
			COALESCE(kcu.referenced_table_schema, ''),
			COALESCE(kcu.referenced_table_name, ''),
			COALESCE(kcu.referenced_column_name, ''),
			COALESCE(rc.update_rule, ''),
			COALESCE(rc.delete_rule, '')
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_schema = tc.constraint_schema
			AND kcu.table_name = tc.table_name
			AND kcu.constraint_name = tc.constraint_name
		LEFT JOIN information_schema.referential_constraints rc
			ON rc.constraint_schema = tc.constraint_schema
			AND rc.table_name = tc.table_name
			AND rc.constraint_name = tc.constraint_name
		WHERE tc.table_schema = ? AND tc.table_name = ?
			AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
		ORDER BY tc.constraint_name, kcu.ordinal_position
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var uniques []*schema.Unique
	var fks []*schema.ForeignKey
	byName := make(map[string]any)

	for rows.Next() {
		var name, kind, column, refSchema, refTable, refColumn, onUpdate, onDelete string
		if err := rows.Scan(&name, &kind, &column, &refSchema, &refTable, &refColumn, &onUpdate, &onDelete); err != nil {
			return err
		}

		switch kind {
		case "PRIMARY KEY":
			table.PrimaryKey = append(table.PrimaryKey, column)
			table.PrimaryKeyName = name
		case "UNIQUE":
			u, ok := byName[name].(*schema.Unique)
			if !ok {
				u = &schema.Unique{Name: name}
				byName[name] = u
				uniques = append(uniques, u)
			}
			u.Columns = append(u.Columns, column)
		case "FOREIGN KEY":
			fk, ok := byName[name].(*schema.ForeignKey)
			if !ok {
				fk = &schema.ForeignKey{
					Name:         name,
					TargetSchema: e.qualifier(refSchema),
					TargetTable:  refTable,
					OnDelete:     mysqlDefaultAction(onDelete),
					OnUpdate:     mysqlDefaultAction(onUpdate),
				}
				byName[name] = fk
				fks = append(fks, fk)
			}
			fk.Columns = append(fk.Columns, column)
			fk.TargetColumns = append(fk.TargetColumns, refColumn)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, u := range uniques {
		table.Uniques = append(table.Uniques, *u)
	}
	for _, fk := range fks {
		table.ForeignKeys = append(table.ForeignKeys, *fk)
	}
	return nil
}

func (e *MySQLExtractor) extractChecks(ctx context.Context, tableName string) ([]schema.Check, error) {
	query := `
		SELECT cc.constraint_name, cc.check_clause
		FROM information_schema.check_constraints cc
		JOIN information_schema.table_constraints tc
			ON tc.constraint_schema = cc.constraint_schema
			AND tc.constraint_name = cc.constraint_name
		WHERE tc.table_schema = ? AND tc.table_name = ? AND tc.constraint_type = 'CHECK'
		ORDER BY cc.constraint_name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checks []schema.Check
	for rows.Next() {
		var ck schema.Check
		if err := rows.Scan(&ck.Name, &ck.Expression); err != nil {
			return nil, err
		}
		checks = append(checks, ck)
	}
	return checks, rows.Err()
}

// extractIndexes returns the indexes that are neither the primary key nor
// created for a unique or foreign key constraint.
func (e *MySQLExtractor) extractIndexes(ctx context.Context, table *schema.Table) ([]schema.Index, error) {
	query := `
		SELECT index_name, non_unique, column_name
		FROM information_schema.statistics
		WHERE table_schema = ? AND table_name = ? AND index_name <> 'PRIMARY'
		ORDER BY index_name, seq_in_index
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, e.schemaName, table.Name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	skip := make(map[string]bool)
	for _, u := range table.Uniques {
		skip[u.Name] = true
	}
	for _, fk := range table.ForeignKeys {
		skip[fk.Name] = true
	}

	var indexes []schema.Index
	expression := make(map[string]bool)
	for rows.Next() {
		var name string
		var nonUnique int
		var column sql.NullString

		if err := rows.Scan(&name, &nonUnique, &column); err != nil {
			return nil, err
		}
		if skip[name] {
			continue
		}
		if !column.Valid {
			expression[name] = true
			continue
		}
		if n := len(indexes); n > 0 && indexes[n-1].Name == name {
			indexes[n-1].Columns = append(indexes[n-1].Columns, column.String)
			continue
		}
		indexes = append(indexes, schema.Index{Name: name, IsUnique: nonUnique == 0, Columns: []string{column.String}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kept := indexes[:0]
	for _, idx := range indexes {
		if !expression[idx.Name] {
			kept = append(kept, idx)
		}
	}
	return kept, nil
}
