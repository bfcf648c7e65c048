package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/tordrt/sqlagen/internal/schema"
)

// SQLiteExtractor reflects an SQLite database through sqlite_master and
// the table-valued pragma functions.
type SQLiteExtractor struct {
	client *SQLiteClient
}

// NewSQLiteExtractor creates a new SQLite schema extractor
func NewSQLiteExtractor(client *SQLiteClient) *SQLiteExtractor {
	return &SQLiteExtractor{client: client}
}

// ExtractSchema extracts the tables (and views) of the database in name order.
func (e *SQLiteExtractor) ExtractSchema(ctx context.Context, opts ExtractOptions) (*schema.Schema, error) {
	refs, err := e.listTables(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get table names: %w", err)
	}

	s := &schema.Schema{Dialect: DialectSQLite, Name: SQLiteMainSchema}
	for _, ref := range refs {
		table, err := e.extractTable(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to extract table %s: %w", ref.name, err)
		}
		s.Tables = append(s.Tables, *table)
	}
	return s, nil
}

type sqliteTableRef struct {
	name string
	view bool
	sql  string
}

func (e *SQLiteExtractor) listTables(ctx context.Context, opts ExtractOptions) ([]sqliteTableRef, error) {
	query := `
		SELECT name, type = 'view', COALESCE(sql, '')
		FROM sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	only := wanted(opts.Tables)
	var refs []sqliteTableRef
	for rows.Next() {
		var ref sqliteTableRef
		if err := rows.Scan(&ref.name, &ref.view, &ref.sql); err != nil {
			return nil, err
		}
		if (only != nil && !only[ref.name]) || (ref.view && opts.NoViews) {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (e *SQLiteExtractor) extractTable(ctx context.Context, ref sqliteTableRef) (*schema.Table, error) {
	table := &schema.Table{Name: ref.name, IsView: ref.view}

	if err := e.extractColumns(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract columns: %w", err)
	}
	if ref.view {
		return table, nil
	}

	fks, err := e.extractForeignKeys(ctx, ref.name)
	if err != nil {
		return nil, fmt.Errorf("failed to extract foreign keys: %w", err)
	}
	table.ForeignKeys = fks

	if err := e.extractIndexes(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to extract indexes: %w", err)
	}

	table.Checks = parseChecks(ref.sql)
	return table, nil
}

// extractColumns fills the columns and the primary key, which pragma
// table_info reports as 1-based positions.
func (e *SQLiteExtractor) extractColumns(ctx context.Context, table *schema.Table) error {
	query := `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`

	rows, err := e.client.GetDB().QueryContext(ctx, query, table.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	type pkColumn struct {
		pos  int
		name string
	}
	var pk []pkColumn
	for rows.Next() {
		var col schema.Column
		var notNull, pkPos int
		var defaultVal sql.NullString

		if err := rows.Scan(&col.Name, &col.Type, &notNull, &defaultVal, &pkPos); err != nil {
			return err
		}
		col.Nullable = notNull == 0 && pkPos == 0
		if defaultVal.Valid {
			def := defaultVal.String
			col.DefaultValue = &def
		}
		if pkPos > 0 {
			pk = append(pk, pkColumn{pos: pkPos, name: col.Name})
		}
		table.Columns = append(table.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(pk, func(i, j int) bool { return pk[i].pos < pk[j].pos })
	for _, c := range pk {
		table.PrimaryKey = append(table.PrimaryKey, c.name)
	}
	// A sole INTEGER primary key aliases the rowid.
	if len(pk) == 1 {
		for i := range table.Columns {
			c := &table.Columns[i]
			if c.Name == pk[0].name && strings.EqualFold(c.Type, "INTEGER") {
				c.Autoincrement = true
			}
		}
	}
	return nil
}

func (e *SQLiteExtractor) extractForeignKeys(ctx context.Context, tableName string) ([]schema.ForeignKey, error) {
	query := `
		SELECT id, "table", "from", "to", on_update, on_delete
		FROM pragma_foreign_key_list(?)
		ORDER BY id, seq
	`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fks []schema.ForeignKey
	lastID := -1
	for rows.Next() {
		var id int
		var target, from, onUpdate, onDelete string
		var to sql.NullString

		if err := rows.Scan(&id, &target, &from, &to, &onUpdate, &onDelete); err != nil {
			return nil, err
		}
		if id != lastID {
			fks = append(fks, schema.ForeignKey{
				TargetTable: target,
				OnDelete:    sqliteAction(onDelete),
				OnUpdate:    sqliteAction(onUpdate),
			})
			lastID = id
		}
		fk := &fks[len(fks)-1]
		fk.Columns = append(fk.Columns, from)
		fk.TargetColumns = append(fk.TargetColumns, to.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// pragma_foreign_key_list lists id in reverse declaration order.
	for i, j := 0, len(fks)-1; i < j; i, j = i+1, j-1 {
		fks[i], fks[j] = fks[j], fks[i]
	}

	// A reference without columns targets the primary key.
	for i := range fks {
		if fks[i].TargetColumns[0] != "" {
			continue
		}
		pk, err := e.primaryKey(ctx, fks[i].TargetTable)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve primary key of %s: %w", fks[i].TargetTable, err)
		}
		if len(pk) == len(fks[i].Columns) {
			fks[i].TargetColumns = pk
		}
	}
	return fks, nil
}

func (e *SQLiteExtractor) primaryKey(ctx context.Context, tableName string) ([]string, error) {
	query := `SELECT name FROM pragma_table_info(?) WHERE pk > 0 ORDER BY pk`

	rows, err := e.client.GetDB().QueryContext(ctx, query, tableName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pk []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		pk = append(pk, name)
	}
	return pk, rows.Err()
}

func sqliteAction(action string) string {
	if action == "NO ACTION" {
		return ""
	}
	return action
}

// extractIndexes fills unique constraints (indexes SQLite created for a
// UNIQUE clause) and explicit indexes. Expression indexes are skipped.
func (e *SQLiteExtractor) extractIndexes(ctx context.Context, table *schema.Table) error {
	query := `SELECT name, "unique", origin FROM pragma_index_list(?) ORDER BY name`

	rows, err := e.client.GetDB().QueryContext(ctx, query, table.Name)
	if err != nil {
		return err
	}

	type indexRef struct {
		name   string
		unique bool
		origin string
	}
	var refs []indexRef
	for rows.Next() {
		var ref indexRef
		if err := rows.Scan(&ref.name, &ref.unique, &ref.origin); err != nil {
			rows.Close()
			return err
		}
		if ref.origin != "pk" {
			refs = append(refs, ref)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, ref := range refs {
		columns, err := e.indexColumns(ctx, ref.name)
		if err != nil {
			return fmt.Errorf("failed to read index %s: %w", ref.name, err)
		}
		if columns == nil {
			continue
		}
		if ref.origin == "u" {
			table.Uniques = append(table.Uniques, schema.Unique{Columns: columns})
			continue
		}
		table.Indexes = append(table.Indexes, schema.Index{Name: ref.name, Columns: columns, IsUnique: ref.unique})
	}
	return nil
}

// indexColumns returns nil when the index covers an expression.
func (e *SQLiteExtractor) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	query := `SELECT name FROM pragma_index_info(?) ORDER BY seqno`

	rows, err := e.client.GetDB().QueryContext(ctx, query, indexName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if !name.Valid {
			return nil, nil
		}
		columns = append(columns, name.String)
	}
	return columns, rows.Err()
}

// parseChecks extracts the CHECK clauses of a CREATE TABLE statement,
// with the constraint name when one precedes the clause. SQLite keeps no
// catalog of check constraints.
func parseChecks(createSQL string) []schema.Check {
	var checks []schema.Check
	tokens := sqlTokens(createSQL)
	for i, tok := range tokens {
		if !strings.EqualFold(tok.text, "CHECK") || i+1 >= len(tokens) || tokens[i+1].text != "(" {
			continue
		}
		end := closingParen(tokens, i+1)
		if end < 0 {
			break
		}
		ck := schema.Check{
			Expression: strings.TrimSpace(createSQL[tokens[i+1].end:tokens[end].start]),
		}
		if i >= 2 && strings.EqualFold(tokens[i-2].text, "CONSTRAINT") {
			ck.Name = unquoteIdent(tokens[i-1].text)
		}
		checks = append(checks, ck)
	}
	return checks
}

type sqlToken struct {
	text       string
	start, end int
}

// sqlTokens splits s into words, quoted strings or identifiers, and single
// punctuation characters.
func sqlTokens(s string) []sqlToken {
	var tokens []sqlToken
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closer := c
			if c == '[' {
				closer = ']'
			}
			j := i + 1
			for j < len(s) {
				if s[j] == closer {
					// Doubled quotes escape themselves.
					if closer != ']' && j+1 < len(s) && s[j+1] == closer {
						j += 2
						continue
					}
					break
				}
				j++
			}
			if j < len(s) {
				j++
			}
			tokens = append(tokens, sqlToken{text: s[i:j], start: i, end: j})
			i = j
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			tokens = append(tokens, sqlToken{text: s[i:j], start: i, end: j})
			i = j
		default:
			tokens = append(tokens, sqlToken{text: s[i : i+1], start: i, end: i + 1})
			i++
		}
	}
	return tokens
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 || unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c))
}

// closingParen returns the index of the token closing tokens[open].
func closingParen(tokens []sqlToken, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func unquoteIdent(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '`':
			return strings.ReplaceAll(s[1:len(s)-1], s[:1]+s[:1], s[:1])
		case '[':
			return s[1 : len(s)-1]
		}
	}
	return s
}
