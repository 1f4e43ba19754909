package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEngineConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		viper.Reset()

		cfg, err := LoadEngineConfig()
		require.NoError(t, err)
		assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
		assert.Equal(t, LeaseBackendLocal, cfg.LeaseBackend)
		assert.Equal(t, 5*time.Second, cfg.LeaseTimeout)
		assert.Equal(t, "UTC", cfg.DefaultTimezone.String())
		assert.Equal(t, "lease:account:", cfg.LeaseKeyPrefix)
		assert.False(t, cfg.LeaseLocalFallback)
	})

	t.Run("local fallback opt in", func(t *testing.T) {
		viper.Reset()
		viper.Set("lease.backend", "redis")
		viper.Set("lease.local_fallback", "true")

		cfg, err := LoadEngineConfig()
		require.NoError(t, err)
		assert.Equal(t, LeaseBackendRedis, cfg.LeaseBackend)
		assert.True(t, cfg.LeaseLocalFallback)
	})

	t.Run("overrides", func(t *testing.T) {
		viper.Reset()
		viper.Set("engine.store", "memory")
		viper.Set("engine.default_timezone", "Africa/Lagos")
		viper.Set("engine.lease_timeout", "250ms")

		cfg, err := LoadEngineConfig()
		require.NoError(t, err)
		assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
		assert.Equal(t, "Africa/Lagos", cfg.DefaultTimezone.String())
		assert.Equal(t, 250*time.Millisecond, cfg.LeaseTimeout)
	})

	t.Run("unknown timezone", func(t *testing.T) {
		viper.Reset()
		viper.Set("engine.default_timezone", "Mars/Olympus")

		_, err := LoadEngineConfig()
		assert.Error(t, err)
	})

	t.Run("redis lease shorter than commit timeout", func(t *testing.T) {
		viper.Reset()
		viper.Set("lease.backend", "redis")
		viper.Set("lease.ttl", "5s")
		viper.Set("engine.commit_timeout", "10s")

		_, err := LoadEngineConfig()
		assert.ErrorContains(t, err, "lease.ttl")
	})

	t.Run("unknown store backend", func(t *testing.T) {
		viper.Reset()
		viper.Set("engine.store", "mongo")

		_, err := LoadEngineConfig()
		assert.ErrorContains(t, err, "engine.store")
	})

	viper.Reset()
}
