package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scavengerhunt/internal/broadcast"
	"scavengerhunt/internal/catalog"
	"scavengerhunt/internal/leaderboard"
	"scavengerhunt/internal/metrics"
	"scavengerhunt/internal/players"
	"scavengerhunt/internal/round"
	"scavengerhunt/internal/session"
)

type testEnv struct {
	srv   *Server
	ts    *httptest.Server
	clock *clockwork.FakeClock
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheus(reg)
	clock := clockwork.NewFakeClock()
	hub := broadcast.NewHub(logger, m)
	cat := catalog.Default()
	engine := round.NewEngine(round.Config{CountdownSecs: 2, ItemsPerRound: 3}, round.Deps{
		Catalog:     cat,
		Leaderboard: leaderboard.NewStore(leaderboard.Seed()...),
		Publisher:   hub,
		Clock:       clock,
		Logger:      logger,
		Metrics:     m,
	})
	hub.SetLeaveFunc(engine.Leave)

	srv := &Server{
		Engine:   engine,
		Sessions: session.NewManager(engine, hub, clock, logger, session.Config{Heartbeat: time.Minute}),
		Catalog:  cat,
		Gatherer: reg,
		Log:      logger,
		Origins:  []string{"*"},
	}
	ts := httptest.NewServer(LogMiddleware(logger, m.HTTPRequests)(srv.Routes()))
	t.Cleanup(func() {
		ts.Close()
		engine.Reset()
	})
	return &testEnv{srv: srv, ts: ts, clock: clock}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(e.ts.URL+path, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) join(t *testing.T, name string) players.Player {
	t.Helper()
	resp := e.post(t, "/api/join", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[struct {
		Player players.Player `json:"player"`
	}](t, resp).Player
}

func TestHandleJoin(t *testing.T) {
	e := newTestServer(t)
	p := e.join(t, "Alice")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Alice", p.Name)

	status := decode[round.Status](t, e.get(t, "/api/status"))
	assert.Equal(t, 1, status.TotalPlayers)
}

func TestHandleJoin_Invalid(t *testing.T) {
	e := newTestServer(t)
	resp := e.post(t, "/api/join", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Post(e.ts.URL+"/api/join", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlePlayerReady(t *testing.T) {
	e := newTestServer(t)
	p := e.join(t, "Alice")
	e.join(t, "Bob")

	resp := e.post(t, "/api/player-ready", map[string]any{"playerId": p.ID, "isReady": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ack := decode[ackResponse](t, resp)
	assert.True(t, ack.Success)

	status := decode[round.Status](t, e.get(t, "/api/status"))
	assert.Equal(t, 1, status.ReadyCount)
	assert.False(t, status.AllReady)
}

func TestHandlePlayerReady_Invalid(t *testing.T) {
	e := newTestServer(t)
	cases := []map[string]any{
		{"isReady": true},
		{"playerId": "p1"},
		{"playerId": "p1", "isReady": "yes"},
	}
	for _, body := range cases {
		resp := e.post(t, "/api/player-ready", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %v", body)
	}
}

func TestHandleItemFound_Validation(t *testing.T) {
	e := newTestServer(t)
	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing player", map[string]any{"itemIndex": 0, "timeTaken": 3}},
		{"missing index", map[string]any{"playerId": "p1", "timeTaken": 3}},
		{"missing time", map[string]any{"playerId": "p1", "itemIndex": 0}},
		{"negative index", map[string]any{"playerId": "p1", "itemIndex": -1, "timeTaken": 3}},
		{"zero time", map[string]any{"playerId": "p1", "itemIndex": 0, "timeTaken": 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := e.post(t, "/api/item-found", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestFullRound(t *testing.T) {
	e := newTestServer(t)
	alice := e.join(t, "Alice")
	bob := e.join(t, "Bob")

	for _, id := range []string{alice.ID, bob.ID} {
		resp := e.post(t, "/api/player-ready", map[string]any{"playerId": id, "isReady": true})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	status := decode[round.Status](t, e.get(t, "/api/status"))
	require.NotNil(t, status.Round.Countdown)
	assert.Equal(t, 2, *status.Round.Countdown)
	assert.Len(t, status.Round.CurrentItems, 3)

	for i := 0; i < 2; i++ {
		e.clock.Advance(time.Second)
		want := 1 - i
		require.Eventually(t, func() bool {
			c := e.srv.Engine.Snapshot().Countdown
			return c != nil && *c == want
		}, time.Second, 5*time.Millisecond)
	}

	status = decode[round.Status](t, e.get(t, "/api/status"))
	assert.True(t, status.IsGameActive)
	assert.Equal(t, round.PhaseActive, status.Round.Phase)

	for i, secs := range []float64{12, 8, 10} {
		resp := e.post(t, "/api/item-found", map[string]any{"playerId": alice.ID, "itemIndex": i, "timeTaken": secs})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	board := decode[[]leaderboard.Entry](t, e.get(t, "/api/leaderboard"))
	var found bool
	for _, entry := range board {
		if entry.Name == "Alice" {
			found = true
			assert.InDelta(t, 10, entry.Speed, 1e-9)
		}
	}
	assert.True(t, found, "Alice missing from leaderboard")

	resp := e.post(t, "/api/stop-game", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status = decode[round.Status](t, e.get(t, "/api/status"))
	assert.False(t, status.IsGameActive)
	assert.NotNil(t, status.Round.Finish)

	resp = e.post(t, "/api/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	status = decode[round.Status](t, e.get(t, "/api/status"))
	assert.Zero(t, status.TotalPlayers)
	assert.Nil(t, status.Round.Start)
}

func TestHandleStartGame(t *testing.T) {
	e := newTestServer(t)

	resp := e.post(t, "/api/start-game", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No players in the game", decode[errorResponse](t, resp).Error)

	e.join(t, "Alice")
	resp = e.post(t, "/api/start-game", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Success bool        `json:"success"`
		Round   round.Round `json:"round"`
	}](t, resp)
	assert.True(t, body.Success)
	assert.True(t, body.Round.GameActive)

	resp = e.post(t, "/api/start-game", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Game already started", decode[errorResponse](t, resp).Error)
}

func TestHandleLeaderboard_SeededOrder(t *testing.T) {
	e := newTestServer(t)
	board := decode[[]leaderboard.Entry](t, e.get(t, "/api/leaderboard"))
	require.Len(t, board, 4)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Speed, board[i].Speed)
	}
}

func TestHandleSubmitLeaderboard(t *testing.T) {
	e := newTestServer(t)
	resp := e.post(t, "/api/leaderboard", map[string]any{
		"name":      "Zoe",
		"speed":     500,
		"timestamp": "2024-02-03T04:05:06.789Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[leaderboard.Entry](t, resp)
	assert.Equal(t, "2024-02-03T04:05:06.789Z", entry.Timestamp)

	board := decode[[]leaderboard.Entry](t, e.get(t, "/api/leaderboard"))
	assert.Equal(t, "Zoe", board[0].Name)

	resp = e.post(t, "/api/leaderboard", map[string]any{"name": "NoSpeed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = e.post(t, "/api/leaderboard", map[string]any{"name": "BadTime", "speed": 1, "timestamp": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleSubmitLeaderboard_FractionalSpeed(t *testing.T) {
	e := newTestServer(t)
	resp := e.post(t, "/api/leaderboard", map[string]any{"name": "X", "speed": 44.5})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decode[leaderboard.Entry](t, resp)
	assert.InDelta(t, 44.5, entry.Speed, 1e-9)

	board := decode[[]leaderboard.Entry](t, e.get(t, "/api/leaderboard"))
	names := make([]string, len(board))
	for i, b := range board {
		names[i] = b.Name
	}
	assert.Equal(t, []string{"Julian 4", "Julian 3", "Julian 2", "X", "Julian"}, names)
}

func TestHandleDetections(t *testing.T) {
	e := newTestServer(t)
	e.join(t, "Alice")
	resp := e.post(t, "/api/start-game", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item := e.srv.Engine.Snapshot().CurrentItems[0]

	resp = e.post(t, "/api/detections", map[string]any{
		"itemIndex":  0,
		"detections": []map[string]any{{"label": strings.ToUpper(item.Name), "score": 0.99}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Matched bool `json:"matched"`
	}](t, resp)
	assert.True(t, body.Matched)

	resp = e.post(t, "/api/detections", map[string]any{"itemIndex": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleCatalog(t *testing.T) {
	e := newTestServer(t)
	items := decode[[]catalog.Item](t, e.get(t, "/api/catalog"))
	assert.Len(t, items, 12)
}

func TestHandleArchive_NoDatabase(t *testing.T) {
	e := newTestServer(t)
	resp := e.get(t, "/api/archive")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleHealth(t *testing.T) {
	e := newTestServer(t)
	resp := e.get(t, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[map[string]string](t, resp)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(t)
	e.get(t, "/health")

	resp := e.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hunt_http_requests_total")
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestServer(t)
	resp := e.get(t, "/api/join")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestEventsStream_DisconnectRemovesPlayer(t *testing.T) {
	e := newTestServer(t)
	e.join(t, "Bob")

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/api/events?player_name=Alice", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		return e.srv.Engine.Status().TotalPlayers == 2
	}, time.Second, 5*time.Millisecond)

	resp.Body.Close()

	require.Eventually(t, func() bool {
		return decode[round.Status](t, e.get(t, "/api/status")).TotalPlayers == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestEventsStream_MissingName(t *testing.T) {
	e := newTestServer(t)
	resp := e.get(t, "/api/events")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
