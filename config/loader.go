package config

import (
	"fmt"
	"os"
	"strings"
)

// DotEnvFile is loaded from the working directory before environment
// overrides are applied.
const DotEnvFile = ".env"

// Load loads configuration for a subcommand with priority:
// CLI flags > FFMERGE_* environment > config file > defaults
func Load(cmd string, args []string) (*Config, error) {
	// 1. Start with defaults
	cfg := DefaultConfig()

	// 2. Check if -config flag was provided (quick scan to extract it)
	configPath := configFlag(args)

	// If no config flag, try to find config file in standard locations
	if configPath == "" {
		configPath = FindConfigFile()
	}

	if configPath != "" {
		fileCfg, err := LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg = fileCfg
	}

	// 3. Environment, optionally seeded from .env
	if err := LoadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}

	// 4. CLI flags (highest priority)
	if err := cfg.MergeFromFlags(cmd, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(cmd); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configFlag returns the value of -config or --config, in either the
// "-config path" or "-config=path" form.
func configFlag(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
