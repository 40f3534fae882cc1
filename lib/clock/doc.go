// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Production code uses Real(); tests use Fake(initial) and call
// Advance to move time deterministically. The server uses the clock
// for created_at assignment on stored events and for live-stream
// heartbeat tickers, so both are testable without real sleeps.
package clock
