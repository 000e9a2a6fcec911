package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGame(t *testing.T, first string) *Game {
	t.Helper()
	g, err := NewGame("g1", "alice", "bob", first, now)
	require.NoError(t, err)
	return g
}

func TestNewGame(t *testing.T) {
	g := newTestGame(t, "bob")
	assert.Equal(t, []string{"alice", "bob"}, g.Players)
	assert.Equal(t, SymbolO, g.PlayerMap["alice"])
	assert.Equal(t, SymbolX, g.PlayerMap["bob"])
	assert.Equal(t, "bob", g.CurrentPlayer)
	assert.Equal(t, StatusOngoing, g.Status)
	assert.Equal(t, Board{}, g.Board)
	assert.Nil(t, g.Winner)
	assert.Empty(t, g.Spectators)
}

func TestNewGameInvalidPlayers(t *testing.T) {
	cases := []struct{ a, b, first string }{
		{"alice", "alice", "alice"},
		{"", "bob", "bob"},
		{"alice", "b o b", "alice"},
		{"alice", "bob", "carol"},
	}
	for _, c := range cases {
		_, err := NewGame("g", c.a, c.b, c.first, now)
		assert.ErrorIsf(t, err, ErrInvalidPlayers, "%+v", c)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestApplyMoveAdvancesTurn(t *testing.T) {
	g := newTestGame(t, "alice")
	before := g.Board

	res, err := g.ApplyMove(4, "alice", now)
	require.NoError(t, err)
	assert.Equal(t, SymbolO, res.Symbol)
	assert.False(t, res.Finished)
	assert.Equal(t, "bob", g.CurrentPlayer)

	changed := 0
	for i := range g.Board {
		if g.Board[i] != before[i] {
			changed++
		}
	}
	assert.Equal(t, 1, changed)
	assert.Equal(t, SymbolO, g.Board[4])
}

func TestApplyMoveRejections(t *testing.T) {
	g := newTestGame(t, "alice")
	_, err := g.ApplyMove(0, "alice", now)
	require.NoError(t, err)

	// occupied, even by the player whose turn it is
	_, err = g.ApplyMove(0, "bob", now)
	assert.ErrorIs(t, err, ErrIllegalMove)

	// out of turn
	_, err = g.ApplyMove(1, "alice", now)
	assert.ErrorIs(t, err, ErrIllegalMove)

	_, err = g.ApplyMove(9, "bob", now)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = g.ApplyMove(-1, "bob", now)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Equal(t, "bob", g.CurrentPlayer)
}

func TestApplyMoveWin(t *testing.T) {
	g := newTestGame(t, "alice")
	moves := []struct {
		idx    int
		player string
	}{
		{0, "alice"}, {3, "bob"}, {1, "alice"}, {4, "bob"}, {2, "alice"},
	}
	var res MoveResult
	var err error
	for _, m := range moves {
		res, err = g.ApplyMove(m.idx, m.player, now)
		require.NoError(t, err)
	}
	assert.True(t, res.Finished)
	require.NotNil(t, g.Winner)
	assert.Equal(t, "alice", *g.Winner)
	assert.False(t, g.IsDraw)
	assert.Equal(t, StatusFinished, g.Status)

	_, err = g.ApplyMove(8, "bob", now)
	assert.ErrorIs(t, err, ErrGameFinished)
}

func TestApplyMoveDraw(t *testing.T) {
	g := newTestGame(t, "bob")
	order := []int{0, 4, 8, 1, 7, 6, 2, 5, 3}
	player := "bob"
	var res MoveResult
	for i, idx := range order {
		var err error
		res, err = g.ApplyMove(idx, player, now)
		require.NoErrorf(t, err, "move %d", i)
		if i < len(order)-1 {
			require.False(t, res.Finished, "move %d", i)
		}
		player = g.Opponent(player)
	}
	assert.True(t, res.Finished)
	assert.True(t, g.IsDraw)
	assert.Nil(t, g.Winner)
	assert.Equal(t, StatusFinished, g.Status)
	assert.NotEmpty(t, g.FinishedEventID)
	assert.False(t, g.FinishAnnounced)
}

func TestCloneIsDeep(t *testing.T) {
	g := newTestGame(t, "alice")
	c := g.Clone()
	c.Players[0] = "mallory"
	c.PlayerMap["alice"] = SymbolX
	c.Board[0] = SymbolX
	assert.Equal(t, "alice", g.Players[0])
	assert.Equal(t, SymbolO, g.PlayerMap["alice"])
	assert.Equal(t, SymbolNone, g.Board[0])
}
