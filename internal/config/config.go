// Package config loads buffer pool and disk manager settings from YAML
// using viper, in the same shape the teacher's top-level NovaSqlConfig used.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the top-level settings document for a single storage instance.
type Config struct {
	BufferPool struct {
		PoolSize      int    `mapstructure:"pool_size"`
		NumInstances  uint32 `mapstructure:"num_instances"`
		InstanceIndex uint32 `mapstructure:"instance_index"`
	} `mapstructure:"buffer_pool"`

	Disk struct {
		// Mode is "file" or "memory"; "memory" is for tests and demos
		// that should not touch the filesystem.
		Mode string `mapstructure:"mode"`
		Path string `mapstructure:"path"`
	} `mapstructure:"disk"`

	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Default returns the configuration used when no file is supplied: a
// single-instance, file-backed pool of 128 frames.
func Default() *Config {
	cfg := &Config{}
	cfg.BufferPool.PoolSize = 128
	cfg.BufferPool.NumInstances = 1
	cfg.BufferPool.InstanceIndex = 0
	cfg.Disk.Mode = "file"
	cfg.Disk.Path = "relkit.db"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads a YAML config file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
