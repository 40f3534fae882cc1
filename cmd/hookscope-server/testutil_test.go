// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/hookscope/hookscope/lib/clock"
	"github.com/hookscope/hookscope/lib/config"
)

var storeTestClockEpoch = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.Default()
}

func openTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()

	fakeClock := clock.Fake(storeTestClockEpoch)

	store, err := OpenStore(StoreConfig{
		Path:     filepath.Join(t.TempDir(), "events_test.db"),
		PoolSize: 2,
		Clock:    fakeClock,
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("store.Close: %v", err)
		}
	})
	return store, fakeClock
}

// newTestServer builds a Server over a fresh temp-file store. It uses
// the real clock: the stream handler sets write deadlines from
// clock.Now(), and a fake clock frozen in the past would make every
// deadline already expired.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	store, err := OpenStore(StoreConfig{
		Path:     filepath.Join(t.TempDir(), "events_test.db"),
		PoolSize: 2,
		Clock:    clock.Real(),
		Logger:   testLogger(t),
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("store.Close: %v", err)
		}
	})

	cfg := config.DefaultServer()
	cfg.StreamBacklog = 5
	cfg.StreamBuffer = 8

	return NewServer(cfg, store, NewHub(testLogger(t)), clock.Real(), testLogger(t))
}
