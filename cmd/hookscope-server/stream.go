// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hookscope/hookscope/lib/netutil"
)

const (
	// streamWriteTimeout bounds each WebSocket write. A client that
	// cannot accept a frame within this window is treated as dead.
	streamWriteTimeout = 10 * time.Second

	// streamReadLimit bounds inbound messages. Clients are not
	// expected to send anything beyond control frames.
	streamReadLimit = 1024
)

// handleStream serves GET /stream: upgrade to WebSocket, replay a
// backlog of recent events, then forward live events until the client
// disconnects.
//
// Connection lifecycle:
//
//  1. Upgrade the HTTP connection.
//  2. Register with the hub BEFORE fetching the backlog. Events
//     ingested between the backlog snapshot and the live loop queue
//     up in the subscriber buffer; the live loop drops any frame at
//     or below the backlog's highest id. The client therefore sees
//     every event exactly once.
//  3. Send the backlog, one JSON event per text frame — the same wire
//     format as live pushes, distinguished only by arrival order.
//  4. Forward live frames and periodic pings until the connection
//     closes or a write fails.
//
// Unregistration is deferred from the moment of registration, so no
// failure path can leak a registration.
func (s *Server) handleStream(writer http.ResponseWriter, request *http.Request) {
	conn, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		s.logger.Warn("stream: upgrade failed",
			"remote_addr", request.RemoteAddr,
			"error", err,
		)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(streamReadLimit)

	sub := NewSubscriber(s.config.StreamBuffer)
	s.hub.Register(sub)
	defer s.hub.Unregister(sub)

	logger := s.logger.With("subscriber", sub.ID, "remote_addr", request.RemoteAddr)
	logger.Info("stream started")
	defer logger.Info("stream ended")

	// Backlog replay. backlogMax is the highest id the backlog
	// delivered; it is fixed after replay and is the sole dedup
	// boundary against the live queue. It must NOT advance with live
	// frames: concurrent ingest handlers broadcast after independent
	// commits, so live frames can arrive out of id order, and a
	// moving watermark would discard the late-arriving ones.
	var backlogMax int64
	if s.config.StreamBacklog > 0 {
		backlog, err := s.store.Recent(request.Context(), s.config.StreamBacklog)
		if err != nil {
			logger.Error("stream: backlog query failed", "error", err)
			return
		}
		for _, event := range backlog {
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error("stream: backlog marshal failed",
					"event_id", event.ID,
					"error", err,
				)
				return
			}
			if err := s.writeFrame(conn, data); err != nil {
				s.logWriteFailure(logger, "backlog write failed", err)
				return
			}
			if event.ID > backlogMax {
				backlogMax = event.ID
			}
		}
	}

	// Reader goroutine: the client sends nothing meaningful, but
	// reading is how gorilla processes close frames and detects a
	// dropped connection.
	readerDone := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readerDone <- err
				return
			}
		}
	}()

	heartbeat := s.clock.NewTicker(s.config.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case frame := <-sub.Events():
			if frame.eventID <= backlogMax {
				// Already delivered in the backlog.
				continue
			}
			if err := s.writeFrame(conn, frame.data); err != nil {
				s.logWriteFailure(logger, "live write failed", err)
				return
			}

		case <-heartbeat.C:
			deadline := s.clock.Now().Add(streamWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				s.logWriteFailure(logger, "heartbeat failed", err)
				return
			}

		case <-sub.Evicted():
			// The hub kicked this connection for falling behind. Tell
			// the client why before hanging up; a fresh connection
			// gets a fresh backlog.
			logger.Info("stream: client too slow, disconnecting")
			deadline := s.clock.Now().Add(streamWriteTimeout)
			message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "client too slow")
			conn.WriteControl(websocket.CloseMessage, message, deadline)
			return

		case err := <-readerDone:
			if err != nil && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				!netutil.IsExpectedCloseError(err) {
				logger.Debug("stream: client read error", "error", err)
			}
			return

		case <-request.Context().Done():
			return
		}
	}
}

// writeFrame sends one serialized event as a text frame with a write
// deadline.
func (s *Server) writeFrame(conn *websocket.Conn, data []byte) error {
	conn.SetWriteDeadline(s.clock.Now().Add(streamWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// logWriteFailure records a failed send at debug level for ordinary
// disconnects and warn level for anything else.
func (s *Server) logWriteFailure(logger *slog.Logger, message string, err error) {
	var closeErr *websocket.CloseError
	if netutil.IsExpectedCloseError(err) || errors.As(err, &closeErr) {
		logger.Debug(message, "error", err)
		return
	}
	logger.Warn(message, "error", err)
}
