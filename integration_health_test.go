package permkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegrationHealthService tests database health checks
func TestIntegrationHealthService(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	ctx := h.GetContext()
	health := NewHealthService(h.GetService())

	assert.True(t, health.IsHealthy(ctx))
	assert.NoError(t, health.Ping(ctx))

	status := health.Health(ctx)
	assert.True(t, status.Healthy)
}

// TestIntegrationPoolService tests connection pool management
func TestIntegrationPoolService(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	pool := NewPoolService(h.GetService())

	require.NoError(t, pool.ConfigureConnectionPool(PoolConfig{
		MaxOpenConnections:    8,
		MaxIdleConnections:    4,
		ConnectionMaxLifetime: DefaultPoolConfig().ConnectionMaxLifetime,
		ConnectionMaxIdleTime: DefaultPoolConfig().ConnectionMaxIdleTime,
	}))

	config, err := pool.GetConnectionPoolConfig()
	require.NoError(t, err)
	assert.Equal(t, 8, config.MaxOpenConnections)

	stats := h.GetService().GetPoolStats()
	assert.Equal(t, 8, stats.MaxOpenConnections)

	require.NoError(t, pool.OptimizeConnectionPool())
	require.NoError(t, pool.ResetConnectionPool())

	config, err = pool.GetConnectionPoolConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPoolConfig().MaxOpenConnections, config.MaxOpenConnections)
}

// TestDefaultPoolConfig tests the pool defaults
func TestDefaultPoolConfig(t *testing.T) {
	config := DefaultPoolConfig()
	assert.Equal(t, 25, config.MaxOpenConnections)
	assert.Equal(t, 10, config.MaxIdleConnections)
	assert.NotZero(t, config.ConnectionMaxLifetime)
	assert.NotZero(t, config.ConnectionMaxIdleTime)
}
