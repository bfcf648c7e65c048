package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/sqlagen/internal/schema"
)

const sqliteFixture = `
CREATE TABLE users (
	id INTEGER PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	status TEXT DEFAULT 'active',
	CONSTRAINT ck_status CHECK (status IN ('active', 'disabled'))
);
CREATE TABLE orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users ON DELETE CASCADE,
	total NUMERIC(10, 2) CHECK (total >= 0),
	note TEXT
);
CREATE INDEX idx_orders_total ON orders (total, note);
CREATE INDEX idx_orders_lower ON orders (lower(note));
CREATE TABLE order_tags (
	order_id INTEGER NOT NULL,
	tag TEXT NOT NULL,
	PRIMARY KEY (order_id, tag),
	FOREIGN KEY (order_id) REFERENCES orders (id)
);
CREATE VIEW big_orders AS SELECT id, total FROM orders WHERE total > 100;
`

func newSQLiteFixture(t *testing.T) *SQLiteClient {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")

	setup, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = setup.Exec(sqliteFixture)
	require.NoError(t, err)
	require.NoError(t, setup.Close())

	client, err := NewSQLiteClient(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func findTable(s *schema.Schema, name string) *schema.Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

func TestSQLiteExtractSchema(t *testing.T) {
	e := NewSQLiteExtractor(newSQLiteFixture(t))

	s, err := e.ExtractSchema(context.Background(), ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, s.Dialect)

	var names []string
	for _, table := range s.Tables {
		names = append(names, table.Name)
	}
	assert.Equal(t, []string{"big_orders", "order_tags", "orders", "users"}, names)

	t.Run("users", func(t *testing.T) {
		users := findTable(s, "users")
		require.NotNil(t, users)
		assert.Equal(t, []string{"id"}, users.PrimaryKey)
		assert.True(t, users.Columns[0].Autoincrement)
		assert.False(t, users.Columns[0].Nullable)
		assert.Equal(t, "VARCHAR(255)", users.Columns[1].Type)
		assert.False(t, users.Columns[1].Nullable)
		require.NotNil(t, users.Columns[2].DefaultValue)
		assert.Equal(t, "'active'", *users.Columns[2].DefaultValue)
		assert.Equal(t, []schema.Unique{{Columns: []string{"email"}}}, users.Uniques)
		assert.Equal(t, []schema.Check{{Name: "ck_status", Expression: "status IN ('active', 'disabled')"}}, users.Checks)
	})

	t.Run("orders", func(t *testing.T) {
		orders := findTable(s, "orders")
		require.NotNil(t, orders)
		assert.Equal(t, []schema.ForeignKey{{
			Columns:       []string{"user_id"},
			TargetTable:   "users",
			TargetColumns: []string{"id"},
			OnDelete:      "CASCADE",
		}}, orders.ForeignKeys)
		assert.Equal(t, []schema.Index{{Name: "idx_orders_total", Columns: []string{"total", "note"}}}, orders.Indexes)
		assert.Equal(t, []schema.Check{{Expression: "total >= 0"}}, orders.Checks)
		assert.True(t, orders.Columns[3].Nullable)
	})

	t.Run("composite primary key", func(t *testing.T) {
		tags := findTable(s, "order_tags")
		require.NotNil(t, tags)
		assert.Equal(t, []string{"order_id", "tag"}, tags.PrimaryKey)
		assert.False(t, tags.Columns[0].Autoincrement)
		assert.Empty(t, tags.Uniques)
		assert.Empty(t, tags.Indexes)
	})

	t.Run("view", func(t *testing.T) {
		view := findTable(s, "big_orders")
		require.NotNil(t, view)
		assert.True(t, view.IsView)
		assert.Len(t, view.Columns, 2)
		assert.Empty(t, view.ForeignKeys)
	})
}

func TestSQLiteExtractSchemaFilters(t *testing.T) {
	e := NewSQLiteExtractor(newSQLiteFixture(t))

	s, err := e.ExtractSchema(context.Background(), ExtractOptions{Tables: []string{"users", "big_orders"}, NoViews: true})
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "users", s.Tables[0].Name)
}

func TestSQLiteMissingFile(t *testing.T) {
	_, err := NewSQLiteClient(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestParseChecks(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []schema.Check
	}{
		{
			name: "nested parentheses",
			sql:  `CREATE TABLE t (a INT, CHECK ((a + 1) * 2 > (3)))`,
			want: []schema.Check{{Expression: "(a + 1) * 2 > (3)"}},
		},
		{
			name: "quoted constraint name",
			sql:  `CREATE TABLE t (a INT, CONSTRAINT "a positive" CHECK (a > 0))`,
			want: []schema.Check{{Name: "a positive", Expression: "a > 0"}},
		},
		{
			name: "keyword inside string",
			sql:  `CREATE TABLE t (a TEXT DEFAULT 'CHECK (x)', b INT check(b <> ')'))`,
			want: []schema.Check{{Expression: "b <> ')'"}},
		},
		{
			name: "none",
			sql:  `CREATE TABLE t (checked INT)`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseChecks(tt.sql))
		})
	}
}
