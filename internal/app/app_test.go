package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"tictactoe/internal/config"
	"tictactoe/internal/domain"
	"tictactoe/internal/events"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{PlayerPort: "0", GamePort: "0", RequestPort: "0", RealtimePort: "0"},
		Database: config.DatabaseConfig{Driver: config.DriverMemory},
		Bus: config.BusConfig{
			Driver: config.DriverMemory,
			Retry:  config.RetryConfig{InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond},
		},
		Realtime: config.RealtimeConfig{BufferSize: 32},
		Log:      config.LogConfig{Level: "debug", Format: "console"},
	}
}

type cluster struct {
	players, games, requests, realtime *httptest.Server
}

func startCluster(t *testing.T) cluster {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	rt, err := New(ctx, memoryConfig(), RoleAll, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, rt.Start(ctx))

	c := cluster{
		players:  httptest.NewServer(rt.Handler(RolePlayer)),
		games:    httptest.NewServer(rt.Handler(RoleGame)),
		requests: httptest.NewServer(rt.Handler(RoleRequest)),
		realtime: httptest.NewServer(rt.Handler(RoleRealtime)),
	}
	t.Cleanup(func() {
		c.realtime.CloseClientConnections()
		for _, s := range []*httptest.Server{c.players, c.games, c.requests, c.realtime} {
			s.Close()
		}
		cancel()
		stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		assert.NoError(t, rt.Stop(stopCtx))
	})
	return c
}

func call(t *testing.T, method, url string, body, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func player(t *testing.T, c cluster, username string) domain.Player {
	t.Helper()
	var p domain.Player
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.players.URL+"/players/"+username, nil, &p))
	return p
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("request")
	require.NoError(t, err)
	assert.Equal(t, RoleRequest, r)
	assert.True(t, RoleAll.runs(RoleGame))
	assert.False(t, RolePlayer.runs(RoleGame))

	_, err = ParseRole("lobby")
	assert.Error(t, err)
}

func TestRolesOnlyServeTheirOwnRoutes(t *testing.T) {
	cfg := memoryConfig()
	rt, err := New(t.Context(), cfg, RoleAll, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { rt.close(context.Background()) })

	for role, name := range map[Role]string{
		RolePlayer:   "player-service",
		RoleGame:     "game-service",
		RoleRequest:  "game-request-service",
		RoleRealtime: "realtime-service",
	} {
		rec := httptest.NewRecorder()
		rt.Handler(role).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Contains(t, rec.Body.String(), name+" is running")
	}

	rec := httptest.NewRecorder()
	rt.Handler(RolePlayer).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGameLifecycle(t *testing.T) {
	c := startCluster(t)

	for _, u := range []string{"alice", "bob"} {
		require.Equal(t, http.StatusCreated, call(t, http.MethodPost, c.players.URL+"/players", map[string]string{"username": u}, nil))
	}

	var req domain.GameRequest
	require.Equal(t, http.StatusCreated, call(t, http.MethodPost, c.requests.URL+"/gameRequest/send-game-request",
		map[string]string{"fromPlayer": "alice", "toPlayer": "bob"}, &req))
	assert.Equal(t, domain.StatusPending, req.Status)

	var pending []domain.GameRequest
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.requests.URL+"/gameRequest/bob", nil, &pending))
	require.Len(t, pending, 1)

	require.Equal(t, http.StatusOK, call(t, http.MethodPost, c.requests.URL+"/gameRequest/respond-game-request",
		map[string]string{"requestId": req.ID, "response": "accepted"}, &req))
	require.Equal(t, domain.StatusAccepted, req.Status)
	require.NotEmpty(t, req.GameID)

	require.Eventually(t, func() bool {
		return player(t, c, "alice").IsPlaying && player(t, c, "bob").IsPlaying
	}, 2*time.Second, 10*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(c.realtime.URL, "http")+"/ws/games/"+req.GameID+"/moves", nil)
	require.NoError(t, err)
	defer conn.Close()

	var g domain.Game
	require.Equal(t, http.StatusOK, call(t, http.MethodGet, c.games.URL+"/games/"+req.GameID, nil, &g))
	require.Equal(t, domain.StatusOngoing, g.Status)

	assert.Equal(t, []string{"alice", "bob"}, g.Players)
	assert.Contains(t, g.Players, g.CurrentPlayer)
	for _, cell := range g.Board {
		assert.Empty(t, cell)
	}

	// Neither side ever completes a line with this order, whoever starts.
	cells := []int{4, 1, 0, 8, 2, 6, 5, 3, 7}
	first := g.CurrentPlayer
	require.Equal(t, http.StatusOK, call(t, http.MethodPost, c.games.URL+"/games/make-move",
		map[string]any{"gameId": g.ID, "index": cells[0], "username": first}, &g))
	assert.Equal(t, g.PlayerMap[first], g.Board[4])
	assert.NotEqual(t, first, g.CurrentPlayer)

	for _, cell := range cells[1:] {
		require.Equal(t, http.StatusOK, call(t, http.MethodPost, c.games.URL+"/games/make-move",
			map[string]any{"gameId": g.ID, "index": cell, "username": g.CurrentPlayer}, &g))
	}
	assert.Equal(t, domain.StatusFinished, g.Status)
	assert.True(t, g.IsDraw)
	assert.Nil(t, g.Winner)

	var moves int
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var e events.Event
		require.NoError(t, conn.ReadJSON(&e))
		if e.Channel == events.GameFinishedChannel(g.ID) {
			break
		}
		assert.Equal(t, events.MoveMadeChannel(g.ID), e.Channel)
		moves++
	}
	assert.Equal(t, 9, moves)

	require.Eventually(t, func() bool {
		a, b := player(t, c, "alice"), player(t, c, "bob")
		return !a.IsPlaying && !b.IsPlaying && a.Stats.Draws == 1 && b.Stats.Draws == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, player(t, c, "alice").Stats.TotalGames)

	code := call(t, http.MethodPost, c.games.URL+"/games/make-move",
		map[string]any{"gameId": g.ID, "index": 0, "username": "alice"}, nil)
	assert.Equal(t, http.StatusConflict, code)
}
