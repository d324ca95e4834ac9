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
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/rngbench/services/rng/bench"
)

func TestProgressHub_PublishReachesEverySubscriber(t *testing.T) {
	hub := NewProgressHub()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	hub.now = func() time.Time { return fixed }

	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()
	require.Equal(t, 2, hub.Subscribers())

	hub.Hook()("pcg32", bench.StateIdle, bench.StateRunningIntegerPhase)

	want := ProgressEvent{Backend: "pcg32", From: "idle", To: "running_integer_phase", At: fixed}
	assert.Equal(t, want, <-a)
	assert.Equal(t, want, <-b)
}

func TestProgressHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewProgressHub()
	events, cancel := hub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < progressBuffer*3; i++ {
			hub.Publish("pcg32", bench.StateIdle, bench.StateDone)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	assert.Len(t, events, progressBuffer)
}

func TestProgressHub_CancelAndClose(t *testing.T) {
	hub := NewProgressHub()
	events, cancel := hub.Subscribe()
	cancel()
	cancel()
	_, ok := <-events
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers())

	live, cancelLive := hub.Subscribe()
	hub.Close()
	hub.Close()
	_, ok = <-live
	assert.False(t, ok)
	cancelLive()

	late, _ := hub.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribing after Close yields a closed channel")

	hub.Publish("pcg32", bench.StateIdle, bench.StateDone)
}

func dialProgress(t *testing.T, hub *ProgressHub) *websocket.Conn {
	t.Helper()
	router := gin.New()
	router.GET("/v1/progress", StreamProgress(hub))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/progress"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)
	return ws
}

func TestStreamProgress_WritesEvents(t *testing.T) {
	hub := NewProgressHub()
	ws := dialProgress(t, hub)

	hub.Publish("xoroshiro128pp", bench.StateRunningIntegerPhase, bench.StateRunningDoublePhase)

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev ProgressEvent
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, "xoroshiro128pp", ev.Backend)
	assert.Equal(t, "running_integer_phase", ev.From)
	assert.Equal(t, "running_double_phase", ev.To)
}

func TestStreamProgress_ClosesWithHub(t *testing.T) {
	hub := NewProgressHub()
	ws := dialProgress(t, hub)

	hub.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestStreamProgress_UnsubscribesOnClientClose(t *testing.T) {
	hub := NewProgressHub()
	ws := dialProgress(t, hub)

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}
