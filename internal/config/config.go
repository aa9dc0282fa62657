package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/plus3/entitypool/ecs"
)

// Config is the root of a TOML configuration file
type Config struct {
	Pool    PoolConfig    `toml:"pool"`
	Prefabs PrefabConfig  `toml:"prefabs"`
	Logging LoggingConfig `toml:"logging"`
	Stress  StressConfig  `toml:"stress"`
}

// PoolConfig sizes the handle cache of every pool
type PoolConfig struct {
	HandleCacheSize int `toml:"handle_cache_size"` // strongly held handles per pool
	HandleShards    int `toml:"handle_shards"`     // rounded up to a power of two
}

// PrefabConfig locates YAML prefab definitions
type PrefabConfig struct {
	Dir string `toml:"dir"` // empty disables prefab loading
}

// LoggingConfig selects the zap level and encoder
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// StressConfig drives cmd/pool-stress
type StressConfig struct {
	Entities int           `toml:"entities"`
	Workers  int           `toml:"workers"`
	Duration time.Duration `toml:"duration"`
	Tick     time.Duration `toml:"tick"`    // scheduler interval, zero disables systems
	Profile  string        `toml:"profile"` // "", "cpu" or "mem"
}

// EcsPoolConfig converts the [pool] section for ecs.NewPool
func (c PoolConfig) EcsPoolConfig() ecs.PoolConfig {
	return ecs.PoolConfig{
		HandleCacheSize: c.HandleCacheSize,
		HandleShards:    c.HandleShards,
	}
}

// Load reads a TOML file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Defaults returns the configuration used when no file or key overrides it
func Defaults() *Config {
	pool := ecs.DefaultPoolConfig()
	return &Config{
		Pool: PoolConfig{
			HandleCacheSize: pool.HandleCacheSize,
			HandleShards:    pool.HandleShards,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Stress: StressConfig{
			Entities: 10000,
			Workers:  4,
			Duration: 10 * time.Second,
			Tick:     16 * time.Millisecond,
		},
	}
}
