// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"strconv"

	"github.com/hookscope/hookscope/lib/schema/hook"
)

// The query handlers are pure reads against the event store. They
// never write and never touch the hub, so the dashboard can call them
// at any frequency alongside live ingestion.

// handleRecent serves GET /events/recent?limit=N: the N most recently
// inserted events in ascending (chronological) order.
func (s *Server) handleRecent(writer http.ResponseWriter, request *http.Request) {
	limit := defaultRecentEvents
	if raw := request.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(writer, http.StatusBadRequest, "limit must be an integer")
			return
		}
		if parsed <= 0 || parsed > maxRecentEvents {
			s.writeError(writer, http.StatusBadRequest,
				"limit must be between 1 and "+strconv.Itoa(maxRecentEvents))
			return
		}
		limit = parsed
	}

	events, err := s.store.Recent(request.Context(), limit)
	if err != nil {
		s.logger.Error("query: recent events failed", "error", err)
		s.writeError(writer, http.StatusInternalServerError, "storage failure")
		return
	}
	if events == nil {
		events = []hook.Event{}
	}
	s.writeJSON(writer, http.StatusOK, events)
}

// handleSessionEvents serves GET /events/session/{id}: every event of
// one session in insertion order.
func (s *Server) handleSessionEvents(writer http.ResponseWriter, request *http.Request) {
	sessionID := request.PathValue("id")
	if sessionID == "" {
		s.writeError(writer, http.StatusBadRequest, "session id is required")
		return
	}

	events, err := s.store.EventsForSession(request.Context(), sessionID)
	if err != nil {
		s.logger.Error("query: session events failed",
			"session_id", sessionID,
			"error", err,
		)
		s.writeError(writer, http.StatusInternalServerError, "storage failure")
		return
	}
	if events == nil {
		events = []hook.Event{}
	}
	s.writeJSON(writer, http.StatusOK, events)
}

// handleFilterOptions serves GET /events/filters: the distinct source
// apps and event types, for dashboard filter controls.
func (s *Server) handleFilterOptions(writer http.ResponseWriter, request *http.Request) {
	options, err := s.store.FilterOptions(request.Context())
	if err != nil {
		s.logger.Error("query: filter options failed", "error", err)
		s.writeError(writer, http.StatusInternalServerError, "storage failure")
		return
	}
	s.writeJSON(writer, http.StatusOK, options)
}

// handleStatus serves GET /status: aggregate operational metrics.
func (s *Server) handleStatus(writer http.ResponseWriter, request *http.Request) {
	stats, err := s.store.Stats(request.Context())
	if err != nil {
		s.logger.Error("status: storage stats failed", "error", err)
		s.writeError(writer, http.StatusInternalServerError, "storage failure")
		return
	}

	s.writeJSON(writer, http.StatusOK, hook.Status{
		EventsReceived:   s.eventsReceived.Load(),
		ConnectedClients: s.hub.ClientCount(),
		UptimeSeconds:    s.clock.Now().Sub(s.startedAt).Seconds(),
		Storage:          stats,
	})
}
