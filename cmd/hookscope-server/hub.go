// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hookscope/hookscope/lib/schema/hook"
)

// eventFrame is one serialized event prepared for fan-out. The JSON
// encoding happens once per broadcast, not once per subscriber; the
// event id rides along so the stream handler can deduplicate against
// its backlog.
type eventFrame struct {
	eventID int64
	data    []byte
}

// Subscriber is one live-stream connection registered with the Hub.
// The ingest path pushes frames onto Events; the connection's stream
// handler drains them. Evicted is closed by the hub when the
// subscriber is kicked for falling behind, so the handler can stop
// without polling.
type Subscriber struct {
	// ID correlates this connection's log lines.
	ID string

	events  chan eventFrame
	evicted chan struct{}

	evictOnce sync.Once
}

// NewSubscriber creates an unregistered subscriber whose outbound
// buffer holds up to buffer frames. Panics if buffer is not positive.
func NewSubscriber(buffer int) *Subscriber {
	if buffer <= 0 {
		panic("hub: subscriber buffer must be positive")
	}
	return &Subscriber{
		ID:      uuid.NewString(),
		events:  make(chan eventFrame, buffer),
		evicted: make(chan struct{}),
	}
}

// Events returns the channel the hub delivers frames on.
func (sub *Subscriber) Events() <-chan eventFrame { return sub.events }

// Evicted returns a channel that is closed if the hub kicks this
// subscriber for falling too far behind.
func (sub *Subscriber) Evicted() <-chan struct{} { return sub.evicted }

func (sub *Subscriber) markEvicted() {
	sub.evictOnce.Do(func() { close(sub.evicted) })
}

// Hub fans each stored event out to every registered live-stream
// subscriber. It exclusively owns the subscriber set: the stream
// handlers register and unregister, the ingest path broadcasts, and
// nothing else touches it.
//
// Broadcast never blocks the ingest path: each delivery is a
// non-blocking channel send. A subscriber whose buffer is full is
// evicted on the spot — one stalled dashboard tab cannot delay
// ingestion or delivery to the other subscribers.
type Hub struct {
	logger *slog.Logger

	// mu guards subscribers. Broadcast holds the read lock only long
	// enough to snapshot delivery targets; register/unregister take
	// the write lock.
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
}

// NewHub creates an empty hub. Panics if logger is nil.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		panic("hub: logger is required")
	}
	return &Hub{
		logger:      logger,
		subscribers: make(map[*Subscriber]struct{}),
	}
}

// Register adds a subscriber to the active set. No-op if it is
// already registered.
func (h *Hub) Register(sub *Subscriber) {
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Debug("subscriber registered",
		"subscriber", sub.ID,
		"active", count,
	)
}

// Unregister removes a subscriber. Idempotent: removing an absent or
// already-removed subscriber is a no-op.
func (h *Hub) Unregister(sub *Subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[sub]
	delete(h.subscribers, sub)
	count := len(h.subscribers)
	h.mu.Unlock()

	if present {
		h.logger.Debug("subscriber unregistered",
			"subscriber", sub.ID,
			"active", count,
		)
	}
}

// ClientCount returns the number of registered subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast serializes the event once and delivers it to every
// registered subscriber. Fire-and-forget from the caller's
// perspective: per-subscriber failures evict that subscriber and are
// never reported back to the ingest path. The zero-subscriber case
// costs one JSON marshal and nothing else.
func (h *Hub) Broadcast(event hook.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		// Can't happen for an event that passed ingest validation;
		// log rather than crash the write path if it somehow does.
		h.logger.Error("broadcast: marshal failed",
			"event_id", event.ID,
			"error", err,
		)
		return
	}

	frame := eventFrame{eventID: event.ID, data: data}

	h.mu.RLock()
	var evict []*Subscriber
	for sub := range h.subscribers {
		select {
		case sub.events <- frame:
		default:
			// Buffer full: the client has stopped draining. Evict it
			// rather than block or silently drop — the dashboard has
			// no way to detect a gap, so a fresh connection with a
			// fresh backlog is the correct recovery.
			evict = append(evict, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range evict {
		h.Unregister(sub)
		sub.markEvicted()
		h.logger.Info("subscriber evicted: send buffer full",
			"subscriber", sub.ID,
			"event_id", event.ID,
		)
	}
}
