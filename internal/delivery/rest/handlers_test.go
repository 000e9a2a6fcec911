package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tictactoe/internal/bus"
	"tictactoe/internal/config"
	"tictactoe/internal/domain"
	"tictactoe/internal/service"
	"tictactoe/internal/storage"
)

type testAPI struct {
	players  http.Handler
	games    http.Handler
	requests http.Handler
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	log := zap.NewNop()
	b := bus.NewMemoryBus(bus.DefaultRetryPolicy, log)
	emit := service.NewEmitter(b, bus.DefaultRetryPolicy, log)

	players := service.NewPlayerDirectory(storage.NewMemoryPlayerStorage(), emit, log)
	sessions := service.NewSessionEngine(storage.NewMemoryGameStorage(), emit, log,
		service.WithFirstMover(func(a, _ string) string { return a }))
	requests := service.NewRequestBroker(storage.NewMemoryRequestStorage(), sessions, emit, log)

	noLimit := config.RateLimitConfig{}
	return testAPI{
		players:  NewServer("player-service", "0", noLimit, log, NewPlayerHandlers(players, log)).Handler(),
		games:    NewServer("game-service", "0", noLimit, log, NewGameHandlers(sessions, log)).Handler(),
		requests: NewServer("game-request-service", "0", noLimit, log, NewRequestHandlers(requests, log)).Handler(),
	}
}

func call(t *testing.T, h http.Handler, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil {
		require.NoErrorf(t, json.Unmarshal(rec.Body.Bytes(), out), "body: %s", rec.Body.String())
	}
	return rec.Code
}

func TestPlayerRoutes(t *testing.T) {
	api := newTestAPI(t)

	var p domain.Player
	assert.Equal(t, http.StatusCreated, call(t, api.players, http.MethodPost, "/players", map[string]string{"username": "alice"}, &p))
	assert.Equal(t, "alice", p.Username)

	var e map[string]string
	assert.Equal(t, http.StatusConflict, call(t, api.players, http.MethodPost, "/players", map[string]string{"username": "alice"}, &e))
	assert.NotEmpty(t, e["error"])
	assert.Equal(t, http.StatusBadRequest, call(t, api.players, http.MethodPost, "/players", map[string]string{"username": "a b"}, nil))

	assert.Equal(t, http.StatusOK, call(t, api.players, http.MethodPatch, "/players/mark-offline/alice", nil, &p))
	assert.False(t, p.IsOnline)

	var online []domain.Player
	assert.Equal(t, http.StatusOK, call(t, api.players, http.MethodGet, "/players/online", nil, &online))
	assert.Empty(t, online)

	assert.Equal(t, http.StatusOK, call(t, api.players, http.MethodPatch, "/players/mark-online/alice", nil, &p))
	assert.True(t, p.IsOnline)
	assert.Equal(t, http.StatusOK, call(t, api.players, http.MethodGet, "/players/online", nil, &online))
	assert.Len(t, online, 1)

	assert.Equal(t, http.StatusOK, call(t, api.players, http.MethodGet, "/players/alice", nil, &p))
	assert.Equal(t, http.StatusNotFound, call(t, api.players, http.MethodGet, "/players/ghost", nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, api.players, http.MethodPatch, "/players/mark-online/ghost", nil, nil))
}

func TestRequestAndGameRoutes(t *testing.T) {
	api := newTestAPI(t)

	var req domain.GameRequest
	code := call(t, api.requests, http.MethodPost, "/gameRequest/send-game-request",
		map[string]string{"fromPlayer": "alice", "toPlayer": "bob"}, &req)
	require.Equal(t, http.StatusCreated, code)

	assert.Equal(t, http.StatusConflict, call(t, api.requests, http.MethodPost, "/gameRequest/send-game-request",
		map[string]string{"fromPlayer": "alice", "toPlayer": "bob"}, nil))

	var inbox []domain.GameRequest
	assert.Equal(t, http.StatusOK, call(t, api.requests, http.MethodGet, "/gameRequest/bob", nil, &inbox))
	require.Len(t, inbox, 1)
	assert.Equal(t, req.ID, inbox[0].ID)

	assert.Equal(t, http.StatusBadRequest, call(t, api.requests, http.MethodPost, "/gameRequest/respond-game-request",
		map[string]string{"requestId": req.ID, "response": "later"}, nil))

	var accepted domain.GameRequest
	require.Equal(t, http.StatusOK, call(t, api.requests, http.MethodPost, "/gameRequest/respond-game-request",
		map[string]string{"requestId": req.ID, "response": "accepted"}, &accepted))
	require.NotEmpty(t, accepted.GameID)

	var fetched domain.GameRequest
	assert.Equal(t, http.StatusOK, call(t, api.requests, http.MethodGet, "/gameRequest/request/"+req.ID, nil, &fetched))
	assert.Equal(t, domain.StatusAccepted, fetched.Status)

	var g domain.Game
	assert.Equal(t, http.StatusOK, call(t, api.games, http.MethodGet, "/games/"+accepted.GameID, nil, &g))
	assert.Equal(t, []string{"alice", "bob"}, g.Players)
	assert.Equal(t, domain.StatusOngoing, g.Status)
}

func TestGameRoutes(t *testing.T) {
	api := newTestAPI(t)

	var g domain.Game
	require.Equal(t, http.StatusCreated, call(t, api.games, http.MethodPost, "/games",
		map[string]string{"fromPlayer": "alice", "toPlayer": "bob"}, &g))
	assert.Equal(t, "alice", g.CurrentPlayer)

	move := func(idx int, user string) int {
		return call(t, api.games, http.MethodPost, "/games/make-move",
			map[string]any{"gameId": g.ID, "index": idx, "username": user}, &g)
	}
	assert.Equal(t, http.StatusOK, move(4, "alice"))
	assert.Equal(t, domain.SymbolO, g.Board[4])
	assert.Equal(t, "bob", g.CurrentPlayer)

	var e map[string]string
	assert.Equal(t, http.StatusConflict, call(t, api.games, http.MethodPost, "/games/make-move",
		map[string]any{"gameId": g.ID, "index": 4, "username": "bob"}, &e))
	assert.Equal(t, http.StatusBadRequest, call(t, api.games, http.MethodPost, "/games/make-move",
		map[string]any{"gameId": g.ID, "username": "bob"}, nil))
	assert.Equal(t, http.StatusNotFound, call(t, api.games, http.MethodPost, "/games/make-move",
		map[string]any{"gameId": "missing", "index": 0, "username": "bob"}, nil))

	var games []domain.Game
	assert.Equal(t, http.StatusOK, call(t, api.games, http.MethodGet, "/games", nil, &games))
	assert.Len(t, games, 1)

	var running map[string]string
	assert.Equal(t, http.StatusOK, call(t, api.games, http.MethodGet, "/", nil, &running))
	assert.Equal(t, "game-service is running", running["message"])
}

func TestMalformedBody(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodPost, "/players", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	api.players.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrInvalidCell:      http.StatusBadRequest,
		domain.ErrGameNotFound:     http.StatusNotFound,
		domain.ErrDuplicateRequest: http.StatusConflict,
		domain.ErrIllegalMove:      http.StatusConflict,
		fmt.Errorf("%w: down", domain.ErrDependency): http.StatusBadGateway,
		fmt.Errorf("%w: timeout", domain.ErrTransient): http.StatusServiceUnavailable,
		errors.New("boom"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equalf(t, want, StatusFor(err), "%v", err)
	}
}

func TestRateLimit(t *testing.T) {
	log := zap.NewNop()
	srv := NewServer("player-service", "0", config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}, log)
	defer srv.limiter.Close()

	first := httptest.NewRecorder()
	srv.Handler().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.Handler().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
