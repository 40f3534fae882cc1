// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides hookscope's SQLite connection pool.
//
// It wraps zombiezen.com/go/sqlite with the defaults the event store
// needs: WAL journal mode so the live dashboard can read while
// ingestion writes, NORMAL synchronous for process-crash durability
// without fsync-per-commit overhead, and a busy timeout so a
// contended write lock waits instead of failing with SQLITE_BUSY.
//
// The pool is built on zombiezen's sqlitex.Pool, which manages a
// fixed-size set of connections. Callers [Pool.Take] a connection,
// perform work, and [Pool.Put] it back. Connections are NOT safe for
// concurrent use — each goroutine must hold its own connection for
// the duration of its work.
//
// # Pragmas
//
// Every connection in the pool is initialized with:
//
//   - journal_mode=WAL: write-ahead logging for concurrent readers and
//     a single writer. Reads never block writes; writes never block
//     reads.
//   - synchronous=NORMAL: transactions survive process crashes. Not
//     durable across power failure — acceptable for an observability
//     tap where the producer sees an explicit error on a failed write.
//   - busy_timeout=5000: wait up to 5 seconds for a write lock instead
//     of returning SQLITE_BUSY immediately.
//   - temp_store=MEMORY: temporary tables and indexes in memory.
//
// # Design
//
// The package is intentionally thin: it applies the pragmas and
// exposes the underlying zombiezen types directly. Callers write SQL,
// use sqlitex.Execute for cached statements, and manage transactions
// with sqlitex.ImmediateTransaction. There is no query builder.
package sqlitepool
