package ygggo_db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// openMemory opens a private in-memory SQLite database for one test.
func openMemory(t *testing.T, mutate ...func(*Config)) *Conn {
	t.Helper()
	cfg := Config{Driver: EngineSQLite, Schema: ":memory:"}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// registerMock creates the sqlmock instance that a Conn opened from cfg
// with SQLDriver "sqlmock" connects to. Statements are matched exactly.
func registerMock(t *testing.T, cfg Config) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.NewWithDSN(cfg.withDefaults().DSN(), sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock
}

// openMock opens a Conn for engine backed by sqlmock. host keeps the
// descriptor DSN unique between tests.
func openMock(t *testing.T, engine Engine, host string) (*Conn, sqlmock.Sqlmock) {
	t.Helper()
	cfg := Config{Driver: engine, Host: host, Schema: "main", Username: "root", Password: "pw", SQLDriver: "sqlmock"}
	mock := registerMock(t, cfg)
	c, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mock
}

// mockSchema registers the sqlmock a ConnectTo(schema) on c will reach.
func mockSchema(t *testing.T, c *Conn, schema string) sqlmock.Sqlmock {
	t.Helper()
	cfg := c.Info()
	cfg.Schema = schema
	return registerMock(t, cfg)
}
