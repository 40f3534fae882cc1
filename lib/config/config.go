// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for hookscope
// binaries.
//
// Configuration comes from a single YAML file, located via the
// --config flag or the HOOKSCOPE_CONFIG environment variable. Every
// field has a default, so running without a config file is fine for
// local use; a file overrides only the fields it sets. Environment
// variables never override file values — configuration stays
// deterministic and auditable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Server is the configuration for hookscope-server.
type Server struct {
	// Listen is the TCP listen address for the HTTP API.
	// Default: 127.0.0.1:4000
	Listen string `yaml:"listen"`

	// DatabasePath is the SQLite database file. The parent directory
	// is created if missing. Default: ~/.local/share/hookscope/events.db
	DatabasePath string `yaml:"database_path"`

	// PoolSize is the SQLite connection pool size. Zero means the
	// pool's own default.
	PoolSize int `yaml:"pool_size"`

	// StreamBacklog is how many recent events a newly connected live
	// stream client receives before live events begin. Default: 50.
	StreamBacklog int `yaml:"stream_backlog"`

	// StreamBuffer is the per-connection outbound event buffer. A
	// client that falls this far behind is disconnected. Default: 256.
	StreamBuffer int `yaml:"stream_buffer"`

	// HeartbeatInterval is how often the server pings idle live
	// stream connections. Default: 30s.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// ShutdownTimeout is the graceful-shutdown drain window for
	// in-flight HTTP requests. Default: 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultServer returns the default server configuration. Used as the
// base before a config file (if any) is merged on top.
func DefaultServer() Server {
	homeDir, _ := os.UserHomeDir()
	return Server{
		Listen:            "127.0.0.1:4000",
		DatabasePath:      filepath.Join(homeDir, ".local", "share", "hookscope", "events.db"),
		StreamBacklog:     50,
		StreamBuffer:      256,
		HeartbeatInterval: 30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// LoadServer loads the server configuration. The path argument (from
// the --config flag) wins; otherwise HOOKSCOPE_CONFIG is consulted;
// otherwise defaults are returned unchanged.
func LoadServer(path string) (Server, error) {
	if path == "" {
		path = os.Getenv("HOOKSCOPE_CONFIG")
	}

	cfg := DefaultServer()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Server{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Server{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return Server{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func (c *Server) validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path must not be empty")
	}
	if c.StreamBacklog < 0 {
		return fmt.Errorf("stream_backlog must not be negative")
	}
	if c.StreamBuffer <= 0 {
		return fmt.Errorf("stream_buffer must be positive")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}
