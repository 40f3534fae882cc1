// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hookscope/hookscope/lib/clock"
	"github.com/hookscope/hookscope/lib/config"
	"github.com/hookscope/hookscope/lib/process"
	"github.com/hookscope/hookscope/lib/service"
	"github.com/hookscope/hookscope/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		listenFlag  string
		dbFlag      string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("hookscope-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file (default: $HOOKSCOPE_CONFIG)")
	flagSet.StringVar(&listenFlag, "listen", "", "TCP listen address (overrides config)")
	flagSet.StringVar(&dbFlag, "db", "", "SQLite database path (overrides config)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		version.Print("hookscope-server")
		return nil
	}

	cfg, err := config.LoadServer(configPath)
	if err != nil {
		return err
	}
	if listenFlag != "" {
		cfg.Listen = listenFlag
	}
	if dbFlag != "" {
		cfg.DatabasePath = dbFlag
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	clk := clock.Real()

	store, err := OpenStore(StoreConfig{
		Path:     cfg.DatabasePath,
		PoolSize: cfg.PoolSize,
		Clock:    clk,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing event store", "error", err)
		}
	}()

	hub := NewHub(logger)
	server := NewServer(cfg, store, hub, clk, logger)

	httpServer := service.NewHTTPServer(service.HTTPServerConfig{
		Address:         cfg.Listen,
		Handler:         server.Routes(),
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})

	logger.Info("hookscope server starting",
		"listen", cfg.Listen,
		"database", cfg.DatabasePath,
		"version", version.Info(),
	)

	return httpServer.Serve(ctx)
}
