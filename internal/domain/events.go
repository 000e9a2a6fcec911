// Path: internal/domain/events.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bus topics.
const (
	TopicPlayerEvents  = "player-events"
	TopicGameEvents    = "game-events"
	TopicRequestEvents = "game-request-events"
)

// Event sources, also used as logger names.
const (
	SourcePlayerService  = "player-service"
	SourceGameService    = "game-service"
	SourceRequestService = "game-request-service"
)

// EventType tags the payload carried by an Event.
type EventType string

const (
	PlayerCreated      EventType = "PLAYER_CREATED"
	PlayerOnline       EventType = "PLAYER_ONLINE"
	PlayerOffline      EventType = "PLAYER_OFFLINE"
	PlayerStatsChanged EventType = "PLAYER_STATS_CHANGED"

	GameCreated  EventType = "GAME_CREATED"
	MoveMade     EventType = "MOVE_MADE"
	GameFinished EventType = "GAME_FINISHED"

	RequestSent     EventType = "REQUEST_SENT"
	RequestAccepted EventType = "REQUEST_ACCEPTED"
	RequestRejected EventType = "REQUEST_REJECTED"
	RequestExpired  EventType = "REQUEST_EXPIRED"
)

// Event is the envelope every message on the bus carries. Only the fields
// relevant to Type are set.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`

	Username string `json:"username,omitempty"`
	Stats    *Stats `json:"stats,omitempty"`

	GameID  string   `json:"gameId,omitempty"`
	Players []string `json:"players,omitempty"`
	Index   *int     `json:"index,omitempty"`
	Symbol  Symbol   `json:"symbol,omitempty"`
	Winner  *string  `json:"winner,omitempty"`
	IsDraw  bool     `json:"isDraw,omitempty"`

	RequestID  string `json:"requestId,omitempty"`
	FromPlayer string `json:"fromPlayer,omitempty"`
	ToPlayer   string `json:"toPlayer,omitempty"`
}

// NewEvent stamps a fresh envelope with a unique id.
func NewEvent(t EventType, source string, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: at.UTC(),
		Source:    source,
	}
}

// Key is the delivery key that orders the event on its topic.
func (e Event) Key() string {
	switch e.Type {
	case GameCreated, MoveMade, GameFinished:
		return e.GameID
	case RequestSent, RequestAccepted, RequestRejected, RequestExpired:
		return e.FromPlayer
	default:
		return e.Username
	}
}

// PlayerEvent builds a presence or registration event.
func PlayerEvent(t EventType, username string, at time.Time) Event {
	e := NewEvent(t, SourcePlayerService, at)
	e.Username = username
	return e
}

// StatsChangedEvent announces a player's new stats.
func StatsChangedEvent(p *Player, at time.Time) Event {
	e := PlayerEvent(PlayerStatsChanged, p.Username, at)
	stats := p.Stats
	e.Stats = &stats
	return e
}

// GameCreatedEvent announces a new session.
func GameCreatedEvent(g *Game, at time.Time) Event {
	e := NewEvent(GameCreated, SourceGameService, at)
	e.GameID = g.ID
	e.Players = append([]string(nil), g.Players...)
	return e
}

// MoveMadeEvent announces an accepted move.
func MoveMadeEvent(m MoveResult, at time.Time) Event {
	e := NewEvent(MoveMade, SourceGameService, at)
	idx := m.Index
	e.GameID = m.GameID
	e.Index = &idx
	e.Username = m.Player
	e.Symbol = m.Symbol
	return e
}

// GameFinishedEvent announces the outcome of a session. It reuses the
// game's FinishedEventID when set.
func GameFinishedEvent(g *Game, at time.Time) Event {
	e := NewEvent(GameFinished, SourceGameService, at)
	if g.FinishedEventID != "" {
		e.ID = g.FinishedEventID
	}
	e.GameID = g.ID
	e.Players = append([]string(nil), g.Players...)
	e.Winner = g.Winner
	e.IsDraw = g.IsDraw
	return e
}

// RequestEvent builds a lifecycle event for a game request.
func RequestEvent(t EventType, r *GameRequest, at time.Time) Event {
	e := NewEvent(t, SourceRequestService, at)
	e.RequestID = r.ID
	e.FromPlayer = r.FromPlayer
	e.ToPlayer = r.ToPlayer
	e.GameID = r.GameID
	return e
}

// Outcomes maps each listed player to their result in a finished game.
func (e Event) Outcomes() map[string]Outcome {
	out := make(map[string]Outcome, len(e.Players))
	for _, p := range e.Players {
		switch {
		case e.IsDraw:
			out[p] = OutcomeDraw
		case e.Winner != nil && *e.Winner == p:
			out[p] = OutcomeWin
		case e.Winner != nil:
			out[p] = OutcomeLoss
		}
	}
	return out
}
