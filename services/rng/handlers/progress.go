// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

const progressBuffer = 64

// ProgressEvent is one driver transition sent to /v1/progress clients.
type ProgressEvent struct {
	Backend string    `json:"backend"`
	From    string    `json:"from"`
	To      string    `json:"to"`
	At      time.Time `json:"at"`
}

// ProgressHub fans driver transitions out to websocket subscribers.
//
// Publish never blocks the driver: a subscriber whose buffer is full
// misses the event.
//
// Thread Safety: Safe for concurrent use.
type ProgressHub struct {
	mu     sync.Mutex
	subs   map[chan ProgressEvent]struct{}
	closed bool
	now    func() time.Time
}

// NewProgressHub returns an empty hub.
func NewProgressHub() *ProgressHub {
	return &ProgressHub{
		subs: make(map[chan ProgressEvent]struct{}),
		now:  time.Now,
	}
}

// Hook returns a bench.StateHook that publishes to the hub.
func (h *ProgressHub) Hook() bench.StateHook {
	return h.Publish
}

// Publish sends one transition to every subscriber.
func (h *ProgressHub) Publish(backend string, from, to bench.State) {
	ev := ProgressEvent{Backend: backend, From: from.String(), To: to.String(), At: h.now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			slog.Debug("progress subscriber lagging; event dropped", "backend", backend, "to", ev.To)
		}
	}
}

// Subscribe registers a new subscriber. The channel is closed by the
// returned cancel func or by Close, whichever runs first.
func (h *ProgressHub) Subscribe() (<-chan ProgressEvent, func()) {
	ch := make(chan ProgressEvent, progressBuffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
		})
	}
}

// Subscribers returns the number of live subscribers.
func (h *ProgressHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close ends every subscription. Later subscribers get a closed channel.
func (h *ProgressHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamProgress upgrades to a websocket and writes one JSON ProgressEvent
// per driver transition until the client disconnects or the hub closes.
func StreamProgress(hub *ProgressHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("progress websocket upgrade failed", "error", err)
			return
		}
		defer ws.Close()

		events, cancel := hub.Subscribe()
		defer cancel()

		// Clients send nothing; reading surfaces their close frame.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-gone:
				return
			case ev, ok := <-events:
				if !ok {
					_ = ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
						time.Now().Add(time.Second))
					return
				}
				if err := ws.WriteJSON(ev); err != nil {
					slog.Warn("failed to write progress event", "error", err)
					return
				}
			}
		}
	}
}
