// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/hookscope/hookscope/lib/schema/hook"
)

// maxEventBodySize bounds an ingest request body. Chat transcripts are
// the largest field; 16 MB is generous headroom over anything the hook
// scripts produce.
const maxEventBodySize = 16 * 1024 * 1024

// handleIngest is the single write path into the system:
// validate, then store, then broadcast, in that order.
//
// The ordering is a hard invariant. A validation failure returns 400
// before the store is touched. A storage failure returns 500 and the
// event is NOT broadcast — a live viewer must never see an event that
// might not survive a crash. Only after the insert returns (and the
// event has its durable id) does the hub fan it out.
func (s *Server) handleIngest(writer http.ResponseWriter, request *http.Request) {
	body, err := io.ReadAll(io.LimitReader(request.Body, maxEventBodySize))
	if err != nil {
		s.logger.Warn("ingest: failed to read body", "error", err)
		s.writeError(writer, http.StatusBadRequest, "unreadable request body")
		return
	}
	if len(body) == 0 {
		s.writeError(writer, http.StatusBadRequest, "empty request body")
		return
	}

	var ingest hook.IngestRequest
	if err := json.Unmarshal(body, &ingest); err != nil {
		s.writeError(writer, http.StatusBadRequest, "malformed JSON: "+err.Error())
		return
	}

	if err := ingest.Validate(); err != nil {
		s.writeError(writer, http.StatusBadRequest, err.Error())
		return
	}

	event, err := s.store.Insert(request.Context(), ingest)
	if err != nil {
		// No retry and no broadcast: the producer gets an explicit
		// failure and must treat the event as not recorded.
		s.logger.Error("ingest: store insert failed",
			"source_app", ingest.SourceApp,
			"session_id", ingest.SessionID,
			"error", err,
		)
		s.writeError(writer, http.StatusInternalServerError, "storage failure")
		return
	}

	s.eventsReceived.Add(1)
	s.logger.Info("event stored",
		"event_id", event.ID,
		"source_app", event.SourceApp,
		"session_id", event.SessionID,
		"hook_event_type", event.HookEventType,
	)

	// Fire-and-forget: a slow or dead stream client is the hub's
	// problem, never the producer's.
	s.hub.Broadcast(event)

	s.writeJSON(writer, http.StatusOK, event)
}
