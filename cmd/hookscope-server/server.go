// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hookscope/hookscope/lib/clock"
	"github.com/hookscope/hookscope/lib/config"
)

// Server is the core state for the hookscope observability server: the
// event store, the broadcast hub, and the HTTP handlers that connect
// them.
//
// The ingest counter uses an atomic for lock-free reads from the
// status handler while ingest handlers write concurrently.
type Server struct {
	config config.Server
	store  *Store
	hub    *Hub
	clock  clock.Clock
	logger *slog.Logger

	upgrader  websocket.Upgrader
	startedAt time.Time

	// eventsReceived counts accepted ingests, updated atomically by
	// ingest handlers and read by the status handler.
	eventsReceived atomic.Uint64
}

// NewServer wires a Server from its parts. Panics on nil dependencies:
// these are programmer errors, not runtime conditions.
func NewServer(cfg config.Server, store *Store, hub *Hub, clk clock.Clock, logger *slog.Logger) *Server {
	if store == nil {
		panic("server: store is required")
	}
	if hub == nil {
		panic("server: hub is required")
	}
	if clk == nil {
		panic("server: clock is required")
	}
	if logger == nil {
		panic("server: logger is required")
	}

	return &Server{
		config: cfg,
		store:  store,
		hub:    hub,
		clock:  clk,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard is served from its own dev origin; the
			// server carries no credentials and no authentication, so
			// cross-origin upgrades are deliberately allowed.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		startedAt: clk.Now(),
	}
}

// Routes returns the HTTP handler exposing the full API surface.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Write path: the single way an event enters the system.
	mux.HandleFunc("POST /events", s.handleIngest)

	// Read paths: pure store queries, never touch the hub.
	mux.HandleFunc("GET /events/recent", s.handleRecent)
	mux.HandleFunc("GET /events/session/{id}", s.handleSessionEvents)
	mux.HandleFunc("GET /events/filters", s.handleFilterOptions)
	mux.HandleFunc("GET /status", s.handleStatus)

	// Live path: WebSocket upgrade bridged to the hub.
	mux.HandleFunc("GET /stream", s.handleStream)

	return s.logRequests(mux)
}

// logRequests logs method, path, status, and duration for every
// request. Stream connections log their own lifecycle as well; the
// entry here records the upgrade itself.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := s.clock.Now()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(recorder, request)

		s.logger.Info("request",
			"method", request.Method,
			"path", request.URL.Path,
			"status", recorder.status,
			"duration", s.clock.Now().Sub(start),
		)
	})
}

// statusRecorder captures the response status for request logging. It
// forwards Hijack so the WebSocket upgrade on /stream still works
// through the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// apiError is the JSON body of every non-200 response.
type apiError struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(writer http.ResponseWriter, status int, v any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	if err := json.NewEncoder(writer).Encode(v); err != nil {
		// Headers are gone; all we can do is record it.
		s.logger.Debug("response encode failed", "error", err)
	}
}

func (s *Server) writeError(writer http.ResponseWriter, status int, message string) {
	s.writeJSON(writer, status, apiError{Error: message})
}
