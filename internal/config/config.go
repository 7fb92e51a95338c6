package config

import (
	"fmt"
	"runtime"
)

// Config holds all configuration for the miner.
type Config struct {
	// Ledger RPC
	RPCURL       string  `mapstructure:"rpc-url"`
	RPCRateLimit float64 `mapstructure:"rpc-rate-limit"`

	// Identity
	Authority string `mapstructure:"authority"`

	// Search
	Workers          uint64 `mapstructure:"workers"`
	BufferSeconds    uint64 `mapstructure:"buffer-seconds"`
	MinDifficulty    uint32 `mapstructure:"min-difficulty"`
	TargetDifficulty uint32 `mapstructure:"target-difficulty"`

	// Storage
	DataDir string `mapstructure:"data-dir"`

	// Dashboard
	DashboardPort int `mapstructure:"dashboard-port"`

	// Logging
	LogLevel string `mapstructure:"log-level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		RPCURL:       "http://127.0.0.1:8899",
		RPCRateLimit: 10,

		Workers:          uint64(runtime.NumCPU()),
		BufferSeconds:    5,
		MinDifficulty:    8,
		TargetDifficulty: 16,

		DataDir: ".ore-miner",

		DashboardPort: 8080,

		LogLevel: "info",
	}
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc-url is required")
	}
	if c.Authority == "" {
		return fmt.Errorf("authority is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.MinDifficulty >= c.TargetDifficulty {
		return fmt.Errorf("min-difficulty must be below target-difficulty")
	}
	if c.DashboardPort <= 0 || c.DashboardPort > 65535 {
		return fmt.Errorf("dashboard-port must be 1-65535")
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("rpc-rate-limit must not be negative")
	}
	return nil
}
