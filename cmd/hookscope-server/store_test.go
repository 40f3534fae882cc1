// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/hookscope/hookscope/lib/clock"
	"github.com/hookscope/hookscope/lib/schema/hook"
)

func testIngestRequest(session string, eventType string) hook.IngestRequest {
	return hook.IngestRequest{
		Timestamp:     storeTestClockEpoch.UnixMilli(),
		SourceApp:     "resume-agent",
		SessionID:     session,
		HookEventType: eventType,
		Payload:       json.RawMessage(`{"tool":"Read","path":"main.go"}`),
	}
}

func TestInsertAssignsMonotonicIDs(t *testing.T) {
	store, fakeClock := openTestStore(t)
	ctx := context.Background()

	var lastID int64
	for i := 0; i < 5; i++ {
		fakeClock.Advance(time.Second)
		event, err := store.Insert(ctx, testIngestRequest("session-1", hook.EventTypePreToolUse))
		if err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
		if event.ID <= lastID {
			t.Fatalf("event id %d not greater than previous id %d", event.ID, lastID)
		}
		lastID = event.ID

		wantCreatedAt := fakeClock.Now().UnixMilli()
		if event.CreatedAt != wantCreatedAt {
			t.Errorf("event.CreatedAt = %d, want %d", event.CreatedAt, wantCreatedAt)
		}
	}
}

func TestInsertRoundTripsOptionalFields(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	withOptional := testIngestRequest("session-1", hook.EventTypePostToolUse)
	withOptional.AISummary = "read the main entry point"
	withOptional.ChatTranscript = "user: open main.go"
	if _, err := store.Insert(ctx, withOptional); err != nil {
		t.Fatalf("Insert (with optional): %v", err)
	}

	if _, err := store.Insert(ctx, testIngestRequest("session-1", hook.EventTypeStop)); err != nil {
		t.Fatalf("Insert (without optional): %v", err)
	}

	events, err := store.EventsForSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("EventsForSession: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	if events[0].AISummary != "read the main entry point" {
		t.Errorf("AISummary = %q, want round-tripped value", events[0].AISummary)
	}
	if events[0].ChatTranscript != "user: open main.go" {
		t.Errorf("ChatTranscript = %q, want round-tripped value", events[0].ChatTranscript)
	}
	if events[1].AISummary != "" {
		t.Errorf("AISummary = %q, want empty for event without one", events[1].AISummary)
	}

	// Payload survives byte-for-byte as JSON.
	var payload map[string]string
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshaling stored payload: %v", err)
	}
	if payload["tool"] != "Read" {
		t.Errorf("payload tool = %q, want Read", payload["tool"])
	}
}

func TestRecentReturnsAscendingOrder(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := store.Insert(ctx, testIngestRequest("session-1", hook.EventTypePreToolUse)); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	events, err := store.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("got %d events, want 4", len(events))
	}

	// The 4 newest of 10, in ascending order: ids 7,8,9,10.
	for i := 1; i < len(events); i++ {
		if events[i].ID <= events[i-1].ID {
			t.Fatalf("events not ascending: id %d after id %d", events[i].ID, events[i-1].ID)
		}
	}
	if events[len(events)-1].ID != 10 {
		t.Errorf("last event id = %d, want 10 (newest)", events[len(events)-1].ID)
	}
	if events[0].ID != 7 {
		t.Errorf("first event id = %d, want 7", events[0].ID)
	}
}

func TestRecentLimitDefaultsAndClamps(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Insert(ctx, testIngestRequest("session-1", hook.EventTypeStop)); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	// Non-positive limit falls back to the default.
	events, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0): %v", err)
	}
	if len(events) != 3 {
		t.Errorf("Recent(0): got %d events, want 3", len(events))
	}

	// An absurd limit is clamped, not rejected at this layer.
	events, err = store.Recent(ctx, maxRecentEvents*10)
	if err != nil {
		t.Fatalf("Recent(huge): %v", err)
	}
	if len(events) != 3 {
		t.Errorf("Recent(huge): got %d events, want 3", len(events))
	}
}

func TestEventsForSessionIsolation(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Insert(ctx, testIngestRequest("session-a", hook.EventTypePreToolUse)); err != nil {
			t.Fatalf("Insert a-%d: %v", i, err)
		}
		if _, err := store.Insert(ctx, testIngestRequest("session-b", hook.EventTypeStop)); err != nil {
			t.Fatalf("Insert b-%d: %v", i, err)
		}
	}

	events, err := store.EventsForSession(ctx, "session-a")
	if err != nil {
		t.Fatalf("EventsForSession: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events for session-a, want 3", len(events))
	}
	for i, event := range events {
		if event.SessionID != "session-a" {
			t.Errorf("event[%d].SessionID = %q, want session-a", i, event.SessionID)
		}
		if i > 0 && event.ID <= events[i-1].ID {
			t.Errorf("events not ascending at index %d", i)
		}
	}

	// Unknown session yields no events and no error.
	events, err = store.EventsForSession(ctx, "no-such-session")
	if err != nil {
		t.Fatalf("EventsForSession (unknown): %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events for unknown session, want 0", len(events))
	}
}

func TestFilterOptions(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	// Empty store returns empty slices, not nulls.
	options, err := store.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("FilterOptions (empty): %v", err)
	}
	if options.Apps == nil || options.EventTypes == nil {
		t.Fatal("FilterOptions on empty store returned nil slices")
	}

	inserts := []struct {
		app       string
		eventType string
	}{
		{"resume-agent", hook.EventTypePreToolUse},
		{"resume-agent", hook.EventTypePostToolUse},
		{"batch-runner", hook.EventTypePreToolUse},
		{"batch-runner", hook.EventTypePreToolUse}, // duplicate
	}
	for i, in := range inserts {
		request := testIngestRequest("session-1", in.eventType)
		request.SourceApp = in.app
		if _, err := store.Insert(ctx, request); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	options, err = store.FilterOptions(ctx)
	if err != nil {
		t.Fatalf("FilterOptions: %v", err)
	}
	wantApps := []string{"batch-runner", "resume-agent"}
	if len(options.Apps) != len(wantApps) {
		t.Fatalf("got %d apps, want %d", len(options.Apps), len(wantApps))
	}
	for i, app := range wantApps {
		if options.Apps[i] != app {
			t.Errorf("apps[%d] = %q, want %q (sorted)", i, options.Apps[i], app)
		}
	}
	wantTypes := []string{hook.EventTypePostToolUse, hook.EventTypePreToolUse}
	if len(options.EventTypes) != len(wantTypes) {
		t.Fatalf("got %d event types, want %d", len(options.EventTypes), len(wantTypes))
	}
	for i, eventType := range wantTypes {
		if options.EventTypes[i] != eventType {
			t.Errorf("event_types[%d] = %q, want %q (sorted)", i, options.EventTypes[i], eventType)
		}
	}
}

func TestStoreStats(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for _, session := range []string{"s1", "s1", "s2", "s3"} {
		if _, err := store.Insert(ctx, testIngestRequest(session, hook.EventTypeStop)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.EventCount != 4 {
		t.Errorf("EventCount = %d, want 4", stats.EventCount)
	}
	if stats.SessionCount != 3 {
		t.Errorf("SessionCount = %d, want 3", stats.SessionCount)
	}
	if stats.DatabaseSizeBytes <= 0 {
		t.Errorf("DatabaseSizeBytes = %d, want > 0", stats.DatabaseSizeBytes)
	}
}

func TestIDsSurviveReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events_reopen.db")
	fakeClock := clock.Fake(storeTestClockEpoch)
	ctx := context.Background()

	store1, err := OpenStore(StoreConfig{
		Path: dbPath, PoolSize: 2, Clock: fakeClock, Logger: testLogger(t),
	})
	if err != nil {
		t.Fatalf("OpenStore (1): %v", err)
	}
	first, err := store1.Insert(ctx, testIngestRequest("session-1", hook.EventTypePreToolUse))
	if err != nil {
		t.Fatalf("Insert (1): %v", err)
	}
	if err := store1.Close(); err != nil {
		t.Fatalf("Close (1): %v", err)
	}

	store2, err := OpenStore(StoreConfig{
		Path: dbPath, PoolSize: 2, Clock: fakeClock, Logger: testLogger(t),
	})
	if err != nil {
		t.Fatalf("OpenStore (2): %v", err)
	}
	defer store2.Close()

	second, err := store2.Insert(ctx, testIngestRequest("session-1", hook.EventTypeStop))
	if err != nil {
		t.Fatalf("Insert (2): %v", err)
	}
	if second.ID <= first.ID {
		t.Errorf("id after reopen = %d, want > %d", second.ID, first.ID)
	}

	events, err := store2.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent after reopen: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events after reopen, want 2", len(events))
	}
}
