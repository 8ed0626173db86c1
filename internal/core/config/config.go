package config

import (
	"time"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Chain     string        `yaml:"chain"`
	BlocksDir string        `yaml:"blocks_dir"`
	Bulk      BulkConfig    `yaml:"bulk"`
	RPC       RPCConfig     `yaml:"rpc"`
	Logging   LoggingConfig `yaml:"logging"`
}

// BulkConfig holds settings for the bulk object-store source.
type BulkConfig struct {
	Region  string `yaml:"region"`
	Workers int    `yaml:"workers"`
}

// RPCConfig holds settings for the live-node source.
type RPCConfig struct {
	Endpoint    string        `yaml:"endpoint"` // empty = per-chain public RPC
	BatchSize   int           `yaml:"batch_size"`
	BatchDelay  time.Duration `yaml:"batch_delay"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Profile describes one chain's bulk bucket and public RPC endpoint.
// Heights below BulkStart never reach the bucket and can only come from a
// live node or an archive snapshot.
type Profile struct {
	Bucket    string
	BulkStart uint64
	RPC       string
}

// Profiles maps chain names to per-chain settings.
var Profiles = map[string]Profile{
	"testnet": {
		Bucket:    "hl-testnet-evm-blocks",
		BulkStart: 18_000_000,
		RPC:       "https://rpc.hyperliquid-testnet.xyz/evm",
	},
	"mainnet": {
		Bucket:    "hl-mainnet-evm-blocks",
		BulkStart: 1,
		RPC:       "https://rpc.hyperliquid.xyz/evm",
	},
}
