// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

// Hookscope-server is the observability event server. It receives
// hook events over HTTP, persists them to a WAL-mode SQLite database,
// and fans each stored event out to connected WebSocket dashboard
// clients in real time.
//
// # HTTP API
//
//   - POST /events: ingest one event. The body is validated, stored,
//     broadcast to live stream subscribers, and echoed back with its
//     assigned id.
//   - GET /events/recent?limit=N: the most recent events in
//     chronological order.
//   - GET /events/session/{id}: every event for one session, in
//     chronological order.
//   - GET /events/filters: distinct source apps and event types seen
//     so far, for populating dashboard filter dropdowns.
//   - GET /status: ingestion counters, connected client count,
//     uptime, and storage statistics.
//   - GET /stream: WebSocket. New connections receive a backlog of
//     recent events, then live events as they are ingested. One JSON
//     event per text frame in both phases.
//
// # Ordering
//
// An event is durable before it is visible: the broadcast to stream
// subscribers happens only after the SQLite insert commits. Event ids
// are assigned by the database and are strictly increasing, so the id
// order is the ingestion order.
package main
