// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package hook

import (
	"encoding/json"
	"fmt"
)

// Common hook event types emitted by coding-agent sessions. The
// server does not restrict hook_event_type to this list — producers
// may send any non-empty string — but these are the values the
// standard hook scripts emit.
const (
	EventTypePreToolUse       = "PreToolUse"
	EventTypePostToolUse      = "PostToolUse"
	EventTypeUserPromptSubmit = "UserPromptSubmit"
	EventTypeNotification     = "Notification"
	EventTypeStop             = "Stop"
	EventTypeSubagentStop     = "SubagentStop"
)

// Event is one immutable record of an observed hook action (tool use,
// prompt submission, etc.) with session and application attribution.
//
// ID and CreatedAt are assigned by the event store on insert; all
// other fields are producer-supplied. Once stored, an event is never
// mutated.
type Event struct {
	// ID is the store-assigned identifier. Strictly increasing in
	// insertion order; the sole ordering key for "most recent N"
	// queries.
	ID int64 `json:"id"`

	// Timestamp is the producer-supplied capture time in epoch
	// milliseconds. Distinct from CreatedAt: producers may batch or
	// retry, so their clock reading is preserved separately from the
	// durable insertion time.
	Timestamp int64 `json:"timestamp"`

	// SourceApp identifies the emitting application, e.g.
	// "resume-agent".
	SourceApp string `json:"source_app"`

	// SessionID groups events belonging to one logical work session,
	// e.g. one coding-agent run.
	SessionID string `json:"session_id"`

	// HookEventType is the event category, e.g. "PreToolUse".
	HookEventType string `json:"hook_event_type"`

	// Payload is event-type-specific structured detail (tool name,
	// arguments, ...). Opaque to the server beyond being valid JSON.
	Payload json.RawMessage `json:"payload"`

	// AISummary is an optional human-readable summary attached by an
	// external enrichment agent before submission.
	AISummary string `json:"ai_summary,omitempty"`

	// ChatTranscript is optional raw transcript context.
	ChatTranscript string `json:"chat_transcript,omitempty"`

	// CreatedAt is the store-assigned insertion time in epoch
	// milliseconds.
	CreatedAt int64 `json:"created_at"`
}

// IngestRequest is the producer-supplied portion of an event, as
// accepted by POST /events. The store assigns ID and CreatedAt.
type IngestRequest struct {
	Timestamp      int64           `json:"timestamp"`
	SourceApp      string          `json:"source_app"`
	SessionID      string          `json:"session_id"`
	HookEventType  string          `json:"hook_event_type"`
	Payload        json.RawMessage `json:"payload"`
	AISummary      string          `json:"ai_summary,omitempty"`
	ChatTranscript string          `json:"chat_transcript,omitempty"`
}

// Validate checks that all required fields are present and that the
// payload is well-formed JSON. It does not inspect the payload's
// internal shape — that varies per hook_event_type and is the
// dashboard's concern, not the server's.
func (r *IngestRequest) Validate() error {
	if r.Timestamp <= 0 {
		return fmt.Errorf("timestamp is required and must be positive epoch milliseconds")
	}
	if r.SourceApp == "" {
		return fmt.Errorf("source_app is required")
	}
	if r.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if r.HookEventType == "" {
		return fmt.Errorf("hook_event_type is required")
	}
	if len(r.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	if !json.Valid(r.Payload) {
		return fmt.Errorf("payload is not valid JSON")
	}
	return nil
}

// FilterOptions holds the distinct attribute values used to populate
// dashboard filter controls.
type FilterOptions struct {
	Apps       []string `json:"apps"`
	EventTypes []string `json:"event_types"`
}

// StorageStats describes the current contents of the event store, for
// the status endpoint.
type StorageStats struct {
	EventCount        int64 `json:"event_count"`
	SessionCount      int64 `json:"session_count"`
	DatabaseSizeBytes int64 `json:"database_size_bytes"`
}

// Status is the response of GET /status.
type Status struct {
	EventsReceived   uint64       `json:"events_received"`
	ConnectedClients int          `json:"connected_clients"`
	UptimeSeconds    float64      `json:"uptime_seconds"`
	Storage          StorageStats `json:"storage"`
}
