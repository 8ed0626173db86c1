package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	if _, ok := Profiles[cfg.Chain]; !ok {
		return nil, fmt.Errorf("unknown chain %q", cfg.Chain)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied, for runs
// without a config file.
func Default() *AppConfig {
	cfg := &AppConfig{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields with their defaults.
func (cfg *AppConfig) ApplyDefaults() {
	if cfg.Chain == "" {
		cfg.Chain = "testnet"
	}
	if cfg.Bulk.Region == "" {
		cfg.Bulk.Region = "ap-northeast-1"
	}
	if cfg.Bulk.Workers == 0 {
		cfg.Bulk.Workers = 32
	}
	if cfg.RPC.Endpoint == "" {
		if p, ok := Profiles[cfg.Chain]; ok {
			cfg.RPC.Endpoint = p.RPC
		}
	}
	if cfg.RPC.BatchSize == 0 {
		cfg.RPC.BatchSize = 5
	}
	if cfg.RPC.BatchDelay == 0 {
		cfg.RPC.BatchDelay = 5 * time.Second
	}
	if cfg.RPC.Timeout == 0 {
		cfg.RPC.Timeout = 30 * time.Second
	}
	if cfg.RPC.MaxAttempts == 0 {
		cfg.RPC.MaxAttempts = 5
	}
}

// ProfileFor returns the chain profile for the configured chain.
func (cfg *AppConfig) ProfileFor() Profile {
	return Profiles[cfg.Chain]
}
