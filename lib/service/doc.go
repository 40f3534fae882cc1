// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides shared infrastructure for Hookscope
// binaries.
//
// The package extracts the common scaffolding a long-running server
// needs:
//
//   - HTTP server: TCP listener lifecycle with readiness signaling,
//     OS-assigned port support, and graceful shutdown on context
//     cancellation.
//
// Binaries compose these utilities in their own main() function
// rather than subclassing a framework. The package provides building
// blocks, not a runtime.
package service
