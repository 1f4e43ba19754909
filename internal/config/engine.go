package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"

	LeaseBackendLocal = "local"
	LeaseBackendRedis = "redis"
)

// EngineConfig holds the tunables of the transfer engine
type EngineConfig struct {
	StoreBackend string
	// LeaseTimeout bounds how long an operation waits for its account leases
	// before failing as busy.
	LeaseTimeout time.Duration
	// CommitTimeout bounds the store work done once leases are held.
	CommitTimeout   time.Duration
	DefaultTimezone *time.Location

	LeaseBackend       string
	LeaseTTL           time.Duration
	LeaseRetryInterval time.Duration
	LeaseKeyPrefix     string
	// LeaseLocalFallback lets a redis lease backend degrade to in-process
	// leases when Redis is unreachable at startup. Only safe with a single
	// engine instance.
	LeaseLocalFallback bool

	LogLevel string
}

// BindEnv maps the engine's environment variables onto viper keys.
func BindEnv() {
	viper.BindEnv("engine.store", "ENGINE_STORE")
	viper.BindEnv("engine.lease_timeout", "ENGINE_LEASE_TIMEOUT")
	viper.BindEnv("engine.commit_timeout", "ENGINE_COMMIT_TIMEOUT")
	viper.BindEnv("engine.default_timezone", "ENGINE_DEFAULT_TIMEZONE")
	viper.BindEnv("lease.backend", "LEASE_BACKEND")
	viper.BindEnv("lease.ttl", "LEASE_TTL")
	viper.BindEnv("lease.retry_interval", "LEASE_RETRY_INTERVAL")
	viper.BindEnv("lease.key_prefix", "LEASE_KEY_PREFIX")
	viper.BindEnv("lease.local_fallback", "LEASE_LOCAL_FALLBACK")
	viper.BindEnv("log.level", "LOG_LEVEL")
}

func setDefaults() {
	viper.SetDefault("engine.store", StoreBackendPostgres)
	viper.SetDefault("engine.lease_timeout", 5*time.Second)
	viper.SetDefault("engine.commit_timeout", 10*time.Second)
	viper.SetDefault("engine.default_timezone", "UTC")
	viper.SetDefault("lease.backend", LeaseBackendLocal)
	viper.SetDefault("lease.ttl", 30*time.Second)
	viper.SetDefault("lease.retry_interval", 25*time.Millisecond)
	viper.SetDefault("lease.key_prefix", "lease:account:")
	viper.SetDefault("lease.local_fallback", false)
	viper.SetDefault("log.level", "info")
}

// LoadEngineConfig reads the engine settings from viper and validates them.
func LoadEngineConfig() (*EngineConfig, error) {
	setDefaults()

	tzName := viper.GetString("engine.default_timezone")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("engine.default_timezone %q: %w", tzName, err)
	}

	cfg := &EngineConfig{
		StoreBackend:       viper.GetString("engine.store"),
		LeaseTimeout:       viper.GetDuration("engine.lease_timeout"),
		CommitTimeout:      viper.GetDuration("engine.commit_timeout"),
		DefaultTimezone:    loc,
		LeaseBackend:       viper.GetString("lease.backend"),
		LeaseTTL:           viper.GetDuration("lease.ttl"),
		LeaseRetryInterval: viper.GetDuration("lease.retry_interval"),
		LeaseKeyPrefix:     viper.GetString("lease.key_prefix"),
		LeaseLocalFallback: viper.GetBool("lease.local_fallback"),
		LogLevel:           viper.GetString("log.level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EngineConfig) Validate() error {
	switch c.StoreBackend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("engine.store must be %q or %q, got %q", StoreBackendPostgres, StoreBackendMemory, c.StoreBackend)
	}
	switch c.LeaseBackend {
	case LeaseBackendLocal, LeaseBackendRedis:
	default:
		return fmt.Errorf("lease.backend must be %q or %q, got %q", LeaseBackendLocal, LeaseBackendRedis, c.LeaseBackend)
	}
	if c.LeaseTimeout <= 0 {
		return fmt.Errorf("engine.lease_timeout must be positive")
	}
	if c.CommitTimeout <= 0 {
		return fmt.Errorf("engine.commit_timeout must be positive")
	}
	// a redis lease must outlive the work done under it
	if c.LeaseBackend == LeaseBackendRedis && c.LeaseTTL <= c.CommitTimeout {
		return fmt.Errorf("lease.ttl (%s) must exceed engine.commit_timeout (%s)", c.LeaseTTL, c.CommitTimeout)
	}
	if c.LeaseRetryInterval <= 0 {
		return fmt.Errorf("lease.retry_interval must be positive")
	}
	return nil
}
