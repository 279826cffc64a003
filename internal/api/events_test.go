package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/daywise/internal/models"
)

type rawEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func dialEvents(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/v1/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev rawEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

// readUntil reads events until match returns true
func readUntil(t *testing.T, conn *websocket.Conn, match func(rawEvent) bool) rawEvent {
	t.Helper()
	for i := 0; i < 10; i++ {
		ev := readEvent(t, conn)
		if match(ev) {
			return ev
		}
	}
	t.Fatal("expected event not received")
	return rawEvent{}
}

func TestEventsReplayLatestOnConnect(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	conn := dialEvents(t, env)

	seen := map[string]rawEvent{}
	for len(seen) < 2 {
		ev := readEvent(t, conn)
		seen[ev.Type] = ev
	}

	var state GenerationView
	require.NoError(t, json.Unmarshal(seen[eventGeneration].Data, &state))
	assert.Equal(t, models.PhaseIdle, state.Phase)

	var list struct {
		Roadmaps []RoadmapView `json:"roadmaps"`
		Total    int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(seen[eventRoadmaps].Data, &list))
	assert.Zero(t, list.Total)
	assert.NotNil(t, list.Roadmaps)
}

func TestEventsPushChanges(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	conn := dialEvents(t, env)

	status, _ := env.do(t, http.MethodPost, "/api/v1/roadmaps/generate", validRequest())
	require.Equal(t, http.StatusCreated, status)

	ev := readUntil(t, conn, func(ev rawEvent) bool {
		if ev.Type != eventGeneration {
			return false
		}
		var state GenerationView
		require.NoError(t, json.Unmarshal(ev.Data, &state))
		return state.Phase == models.PhaseSuccess
	})
	var state GenerationView
	require.NoError(t, json.Unmarshal(ev.Data, &state))
	require.NotNil(t, state.Roadmap)
	assert.Equal(t, "Go in two days", state.Roadmap.Name)

	readUntil(t, conn, func(ev rawEvent) bool {
		if ev.Type != eventRoadmaps {
			return false
		}
		var list struct {
			Total int `json:"total"`
		}
		require.NoError(t, json.Unmarshal(ev.Data, &list))
		return list.Total == 1
	})
}

func TestEventsClosedOnStoreShutdown(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	conn := dialEvents(t, env)

	readEvent(t, conn)
	readEvent(t, conn)

	env.store.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
}
