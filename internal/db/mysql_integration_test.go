//go:build integration

package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tordrt/sqlagen/internal/schema"
)

const mysqlFixture = `
CREATE TABLE users (
	id INT AUTO_INCREMENT PRIMARY KEY,
	username VARCHAR(50) NOT NULL UNIQUE,
	status ENUM('active', 'inactive', 'banned') NOT NULL DEFAULT 'active',
	created_at TIMESTAMP NULL DEFAULT CURRENT_TIMESTAMP
) COMMENT 'Registered users';
CREATE TABLE orders (
	id INT AUTO_INCREMENT PRIMARY KEY,
	user_id INT NOT NULL,
	quantity INT NOT NULL DEFAULT 1,
	placed_at DATETIME,
	CONSTRAINT positive_quantity CHECK (quantity > 0),
	FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
	INDEX idx_placed (placed_at)
);
`

func startMySQL(t *testing.T) *MySQLClient {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mysql:8.0",
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": "testpassword",
				"MYSQL_DATABASE":      "testdb",
			},
			WaitingFor: wait.ForAll(
				wait.ForLog("port: 3306  MySQL Community Server"),
				wait.ForListeningPort("3306/tcp"),
			).WithDeadline(3 * time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("root:testpassword@tcp(%s:%s)/testdb?multiStatements=true", host, port.Port())
	client, err := NewMySQLClient(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	_, err = client.GetDB().ExecContext(ctx, mysqlFixture)
	require.NoError(t, err)
	return client
}

func TestMySQLExtraction(t *testing.T) {
	client := startMySQL(t)
	ctx := context.Background()

	s, err := NewMySQLExtractor(client, "", "testdb").ExtractSchema(ctx, ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, s.Tables, 2)

	users := findTable(s, "users")
	require.NotNil(t, users)
	assert.Equal(t, "Registered users", *users.Comment)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)
	assert.True(t, users.Columns[0].Autoincrement)
	assert.Equal(t, "enum('active','inactive','banned')", users.Columns[2].Type)
	assert.Equal(t, "'active'", *users.Columns[2].DefaultValue)
	assert.Equal(t, "CURRENT_TIMESTAMP", *users.Columns[3].DefaultValue)
	assert.Equal(t, []schema.Unique{{Name: "username", Columns: []string{"username"}}}, users.Uniques)

	orders := findTable(s, "orders")
	require.NotNil(t, orders)
	require.Len(t, orders.ForeignKeys, 1)
	assert.Equal(t, "users", orders.ForeignKeys[0].TargetTable)
	assert.Equal(t, "", orders.ForeignKeys[0].TargetSchema)
	assert.Equal(t, "CASCADE", orders.ForeignKeys[0].OnDelete)
	assert.Equal(t, "", orders.ForeignKeys[0].OnUpdate)
	assert.Equal(t, []schema.Check{{Name: "positive_quantity", Expression: "(`quantity` > 0)"}}, orders.Checks)
	assert.Equal(t, []schema.Index{{Name: "idx_placed", Columns: []string{"placed_at"}}}, orders.Indexes)
}

func TestMySQLSpecificTables(t *testing.T) {
	client := startMySQL(t)

	s, err := NewMySQLExtractor(client, "testdb", "testdb").ExtractSchema(context.Background(), ExtractOptions{Tables: []string{"users"}})
	require.NoError(t, err)
	require.Len(t, s.Tables, 1)
	assert.Equal(t, "users", s.Tables[0].Name)
}
