// Copyright 2026 The Grounded Git MCP Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable that points at the config file.
const EnvVar = "GROUNDED_GIT_MCP_CONFIG"

// Config is the master configuration for the server.
type Config struct {
	// Git configures the bounded git runner.
	Git GitConfig `yaml:"git"`

	// Approval configures the confirmation subsystem.
	Approval ApprovalConfig `yaml:"approval"`
}

// GitConfig bounds every git invocation. Read-only queries and write
// commands get separate timeouts: inspection must stay snappy, while
// an approved push may legitimately take longer.
type GitConfig struct {
	// ReadTimeoutSeconds caps read-only query duration.
	ReadTimeoutSeconds float64 `yaml:"read_timeout_seconds"`

	// WriteTimeoutSeconds caps approved write command duration.
	WriteTimeoutSeconds float64 `yaml:"write_timeout_seconds"`

	// MaxOutputBytes truncates captured stdout/stderr beyond this size.
	MaxOutputBytes int `yaml:"max_output_bytes"`
}

// ApprovalConfig configures confirmation token lifetime.
type ApprovalConfig struct {
	// TTLSeconds is the proposal lifetime: a confirmation expires this
	// many seconds after it is created.
	TTLSeconds int64 `yaml:"ttl_seconds"`
}

// Default returns the built-in configuration used when no file is given.
func Default() *Config {
	return &Config{
		Git: GitConfig{
			ReadTimeoutSeconds:  3,
			WriteTimeoutSeconds: 30,
			MaxOutputBytes:      80_000,
		},
		Approval: ApprovalConfig{
			TTLSeconds: 900,
		},
	}
}

// Load reads the config file at path, overlaying it on the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	configuration := Default()
	if path == "" {
		return configuration, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, configuration); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := configuration.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return configuration, nil
}

// FromEnvironment loads the config file named by GROUNDED_GIT_MCP_CONFIG,
// or the defaults when the variable is unset. An explicit flag value
// takes precedence over the environment.
func FromEnvironment(flagPath string) (*Config, error) {
	if flagPath != "" {
		return Load(flagPath)
	}
	return Load(os.Getenv(EnvVar))
}

// ReadTimeout returns the read-only query timeout as a duration.
func (g *GitConfig) ReadTimeout() time.Duration {
	return time.Duration(g.ReadTimeoutSeconds * float64(time.Second))
}

// WriteTimeout returns the write command timeout as a duration.
func (g *GitConfig) WriteTimeout() time.Duration {
	return time.Duration(g.WriteTimeoutSeconds * float64(time.Second))
}

// TTL returns the proposal lifetime as a duration.
func (a *ApprovalConfig) TTL() time.Duration {
	return time.Duration(a.TTLSeconds) * time.Second
}

func (c *Config) validate() error {
	if c.Git.ReadTimeoutSeconds <= 0 {
		return fmt.Errorf("git.read_timeout_seconds must be positive, got %v", c.Git.ReadTimeoutSeconds)
	}
	if c.Git.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("git.write_timeout_seconds must be positive, got %v", c.Git.WriteTimeoutSeconds)
	}
	if c.Git.MaxOutputBytes <= 0 {
		return fmt.Errorf("git.max_output_bytes must be positive, got %d", c.Git.MaxOutputBytes)
	}
	if c.Approval.TTLSeconds <= 0 {
		return fmt.Errorf("approval.ttl_seconds must be positive, got %d", c.Approval.TTLSeconds)
	}
	return nil
}
