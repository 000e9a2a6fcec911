// Path: internal/domain/game.go
package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// GameStatus is the lifecycle state of a session.
type GameStatus string

const (
	// StatusWaiting is reserved for a pre-join phase; sessions are currently created ONGOING.
	StatusWaiting  GameStatus = "WAITING"
	StatusOngoing  GameStatus = "ONGOING"
	StatusFinished GameStatus = "FINISHED"
)

// Game is the authoritative state of one tic-tac-toe session.
type Game struct {
	ID            string            `json:"id" bson:"_id"`
	Players       []string          `json:"players" bson:"players"`
	PlayerMap     map[string]Symbol `json:"playerMap" bson:"playerMap"`
	Spectators    []string          `json:"spectators" bson:"spectators"`
	Board         Board             `json:"board" bson:"board"`
	CurrentPlayer string            `json:"currentPlayer" bson:"currentPlayer"`
	Status        GameStatus        `json:"status" bson:"status"`
	IsDraw        bool              `json:"isDraw" bson:"isDraw"`
	Winner        *string           `json:"winner" bson:"winner"`
	Version       int64             `json:"version" bson:"version"`
	CreatedAt     time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt" bson:"updatedAt"`

	// FinishedEventID is fixed by the finishing move so every announcement of
	// the outcome carries the same event id.
	FinishedEventID string `json:"-" bson:"finishedEventId,omitempty"`
	FinishAnnounced bool   `json:"-" bson:"finishAnnounced"`
}

// MoveResult describes an accepted move and the state it left the game in.
type MoveResult struct {
	GameID   string  `json:"gameId"`
	Index    int     `json:"index"`
	Player   string  `json:"username"`
	Symbol   Symbol  `json:"symbol"`
	Finished bool    `json:"finished"`
	Winner   *string `json:"winner"`
	IsDraw   bool    `json:"isDraw"`
}

// NewGame starts a session between a and b. The first player plays O and the
// second plays X; first decides who moves first.
func NewGame(id, a, b, first string, now time.Time) (*Game, error) {
	var err error
	if a, err = NormalizeUsername(a); err != nil {
		return nil, ErrInvalidPlayers
	}
	if b, err = NormalizeUsername(b); err != nil {
		return nil, ErrInvalidPlayers
	}
	if a == b || (first != a && first != b) {
		return nil, ErrInvalidPlayers
	}

	return &Game{
		ID:            id,
		Players:       []string{a, b},
		PlayerMap:     map[string]Symbol{a: SymbolO, b: SymbolX},
		Spectators:    []string{},
		CurrentPlayer: first,
		Status:        StatusOngoing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Opponent returns the other participant.
func (g *Game) Opponent(player string) string {
	for _, p := range g.Players {
		if p != player {
			return p
		}
	}
	return ""
}

// ApplyMove places the current player's symbol at index and advances the turn,
// finishing the game on a win or a full board. It does not touch Version.
func (g *Game) ApplyMove(index int, player string, now time.Time) (MoveResult, error) {
	if g.Status == StatusFinished {
		return MoveResult{}, ErrGameFinished
	}
	if index < 0 || index >= BoardSize {
		return MoveResult{}, ErrInvalidCell
	}
	if g.Status != StatusOngoing {
		return MoveResult{}, ErrIllegalMove
	}
	if g.Board[index] != SymbolNone {
		return MoveResult{}, ErrIllegalMove
	}
	if player != g.CurrentPlayer {
		return MoveResult{}, ErrIllegalMove
	}

	symbol := g.PlayerMap[player]
	g.Board[index] = symbol
	g.CurrentPlayer = g.Opponent(player)
	g.UpdatedAt = now

	res := MoveResult{GameID: g.ID, Index: index, Player: player, Symbol: symbol}
	if CheckWinner(g.Board) == symbol {
		winner := player
		g.Winner = &winner
		g.Status = StatusFinished
	} else if g.Board.Full() {
		g.IsDraw = true
		g.Status = StatusFinished
	}
	if g.Status == StatusFinished {
		g.FinishedEventID = uuid.NewString()
		res.Finished = true
		res.Winner = g.Winner
		res.IsDraw = g.IsDraw
	}
	return res, nil
}

// Clone returns a deep copy.
func (g *Game) Clone() *Game {
	c := *g
	c.Players = slices.Clone(g.Players)
	c.Spectators = slices.Clone(g.Spectators)
	c.PlayerMap = maps.Clone(g.PlayerMap)
	if g.Winner != nil {
		w := *g.Winner
		c.Winner = &w
	}
	return &c
}
