package ygggo_db

import (
	"context"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck_SQLite(t *testing.T) {
	c := openMemory(t)
	status := c.HealthCheck(context.Background())
	require.True(t, status.Healthy, "%v", status.Errors)
	assert.Empty(t, status.Errors)
	assert.Equal(t, int64(1), status.Details["test_query_result"])
	assert.Contains(t, status.Details, "ping_time")
	assert.True(t, status.ResponseTime > 0)
}

func TestHealthCheck_QueryFailure(t *testing.T) {
	c := openMemory(t)
	status := c.HealthCheckWithConfig(context.Background(), HealthCheckConfig{TestQuery: "SELECT * FROM missing"})
	assert.False(t, status.Healthy)
	require.Len(t, status.Errors, 1)
	assert.Equal(t, "query_execution", status.Errors[0].Type)
	assert.False(t, status.Errors[0].Recoverable)
}

func TestHealthCheck_BadConnIsRecoverable(t *testing.T) {
	c, mock := openMock(t, EngineMySQL, "mysql.health")
	mock.ExpectQuery("SELECT 1").WillReturnError(driver.ErrBadConn)

	status := c.HealthCheck(context.Background())
	assert.False(t, status.Healthy)
	require.Len(t, status.Errors, 1)
	assert.True(t, status.Errors[0].Recoverable)
}

func TestPing_Closed(t *testing.T) {
	c, err := Open(context.Background(), Config{Driver: EngineSQLite, Schema: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))

	status := c.HealthCheck(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "connectivity", status.Errors[0].Type)
}
