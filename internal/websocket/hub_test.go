package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ar-session-core/internal/eventbus"
	"ar-session-core/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversOnlyToSessionWatchers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	a := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, SessionID: "b", Send: make(chan []byte, 4)}
	hub.register <- a
	hub.register <- b

	require.Eventually(t, func() bool {
		return hub.Watchers("a") == 1 && hub.Watchers("b") == 1
	}, time.Second, 5*time.Millisecond)

	hub.Send(eventbus.Envelope{Seq: 1, Type: "SESSION_STATE_CHANGED", SessionID: "a"})

	select {
	case raw := <-a.Send:
		var msg struct {
			Type string            `json:"type"`
			Data eventbus.Envelope `json:"data"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "session_event", msg.Type)
		assert.Equal(t, uint64(1), msg.Data.Seq)
	case <-time.After(time.Second):
		t.Fatal("watcher of session a got nothing")
	}
	assert.Empty(t, b.Send)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	c := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 1)}
	hub.register <- c
	hub.unregister <- c

	require.Eventually(t, func() bool { return hub.Watchers("a") == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.Send
	assert.False(t, open)
}

func TestHubFullBufferDropsWithoutBlocking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	c := &Client{Hub: hub, SessionID: "a", Send: make(chan []byte, 1)}
	hub.register <- c
	require.Eventually(t, func() bool { return hub.Watchers("a") == 1 }, time.Second, 5*time.Millisecond)

	hub.Send(eventbus.Envelope{Seq: 1, SessionID: "a"})
	hub.Send(eventbus.Envelope{Seq: 2, SessionID: "a"})
	assert.Len(t, c.Send, 1)
}
