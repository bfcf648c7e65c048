//go:build integration

package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/tordrt/sqlagen/internal/schema"
)

const postgresFixture = `
CREATE TYPE order_status AS ENUM ('new', 'paid');
CREATE TABLE users (
	id SERIAL PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
);
COMMENT ON TABLE users IS 'Registered users';
CREATE TABLE orders (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	user_id INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
	status order_status NOT NULL DEFAULT 'new',
	total NUMERIC(10, 2) CONSTRAINT positive_total CHECK (total >= 0)
);
COMMENT ON COLUMN orders.total IS 'Gross amount';
CREATE INDEX orders_status_idx ON orders (status);
CREATE INDEX orders_lower_idx ON orders ((status::text));
CREATE VIEW paid_orders AS SELECT id, total FROM orders WHERE status = 'paid';
CREATE SCHEMA archive;
CREATE TABLE archive.old_orders (
	id INTEGER PRIMARY KEY,
	user_id INTEGER REFERENCES public.users (id)
);
`

func startPostgres(t *testing.T) *PostgresClient {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("shop"),
		postgres.WithUsername("shop"),
		postgres.WithPassword("shop"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	client, err := NewPostgresClient(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	_, err = client.GetConnection().Exec(ctx, postgresFixture)
	require.NoError(t, err)
	return client
}

func TestPostgresExtractSchema(t *testing.T) {
	client := startPostgres(t)
	ctx := context.Background()

	s, err := NewPostgresExtractor(client, "").ExtractSchema(ctx, ExtractOptions{})
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, s.Dialect)
	require.Len(t, s.Tables, 3)

	users := findTable(s, "users")
	require.NotNil(t, users)
	assert.Equal(t, "Registered users", *users.Comment)
	assert.Equal(t, "users_pkey", users.PrimaryKeyName)
	assert.True(t, users.Columns[0].Autoincrement)
	assert.Equal(t, "character varying(255)", users.Columns[1].Type)
	assert.Equal(t, []schema.Unique{{Name: "users_email_key", Columns: []string{"email"}}}, users.Uniques)
	assert.Empty(t, users.Indexes)

	orders := findTable(s, "orders")
	require.NotNil(t, orders)
	assert.True(t, orders.Columns[0].Autoincrement)
	assert.Equal(t, "order_status", orders.Columns[2].EnumName)
	assert.Equal(t, []string{"new", "paid"}, orders.Columns[2].EnumValues)
	assert.Equal(t, "Gross amount", *orders.Columns[3].Comment)
	assert.Equal(t, []schema.ForeignKey{{
		Name:          "orders_user_id_fkey",
		Columns:       []string{"user_id"},
		TargetTable:   "users",
		TargetColumns: []string{"id"},
		OnDelete:      "CASCADE",
	}}, orders.ForeignKeys)
	assert.Equal(t, []schema.Check{{Name: "positive_total", Expression: "(total >= (0)::numeric)"}}, orders.Checks)
	assert.Equal(t, []schema.Index{{Name: "orders_status_idx", Columns: []string{"status"}}}, orders.Indexes)

	view := findTable(s, "paid_orders")
	require.NotNil(t, view)
	assert.True(t, view.IsView)
}

func TestPostgresExtractOtherSchema(t *testing.T) {
	client := startPostgres(t)

	s, err := NewPostgresExtractor(client, "archive").ExtractSchema(context.Background(), ExtractOptions{NoViews: true})
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)

	old := s.Tables[0]
	assert.Equal(t, "archive", old.Schema)
	require.Len(t, old.ForeignKeys, 1)
	assert.Equal(t, "", old.ForeignKeys[0].TargetSchema)
	assert.Equal(t, "users", old.ForeignKeys[0].TargetTable)
}
