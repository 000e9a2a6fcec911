// Path: internal/service/relay.go
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"tictactoe/internal/consumer"
	"tictactoe/internal/domain"
	"tictactoe/internal/events"
)

// GameReader looks up a session by id.
type GameReader interface {
	GetGame(ctx context.Context, id string) (*domain.Game, error)
}

// MoveNotice is pushed to MOVE_MADE_<gameId> subscribers.
type MoveNotice struct {
	GameID   string        `json:"gameId"`
	Index    int           `json:"index"`
	Username string        `json:"username"`
	Symbol   domain.Symbol `json:"symbol"`
}

// FinishedNotice is pushed to GAME_FINISHED_<gameId> subscribers.
type FinishedNotice struct {
	GameID  string   `json:"gameId"`
	Players []string `json:"players"`
	Winner  *string  `json:"winner"`
	IsDraw  bool     `json:"isDraw"`
}

// PlayerNotice is pushed to PLAYERS_CHANGED subscribers.
type PlayerNotice struct {
	Type     domain.EventType `json:"type"`
	Username string           `json:"username"`
	Stats    *domain.Stats    `json:"stats,omitempty"`
}

// Relay turns bus events into real-time notifications on the fan-out broker.
type Relay struct {
	broker *events.Broker
	games  GameReader
	log    *zap.Logger
}

// NewRelay creates a relay. games is used to attach the new session to
// acceptance notifications.
func NewRelay(broker *events.Broker, games GameReader, log *zap.Logger) *Relay {
	return &Relay{broker: broker, games: games, log: log}
}

// Dispatchers returns the relay's handlers per topic. GAME_CREATED and
// GAME_FINISHED also travel on player-events; they are relayed from
// game-events only.
func (r *Relay) Dispatchers() map[string]*consumer.Dispatcher {
	return map[string]*consumer.Dispatcher{
		domain.TopicRequestEvents: consumer.NewDispatcher(r.log).
			On(domain.RequestSent, r.onRequestSent).
			On(domain.RequestAccepted, r.onRequestAccepted).
			On(domain.RequestRejected, r.onRequestResponded).
			On(domain.RequestExpired, r.onRequestResponded),
		domain.TopicGameEvents: consumer.NewDispatcher(r.log).
			On(domain.MoveMade, r.onMoveMade).
			On(domain.GameFinished, r.onGameFinished).
			Ignore(domain.GameCreated),
		domain.TopicPlayerEvents: consumer.NewDispatcher(r.log).
			On(domain.PlayerCreated, r.onPlayerChanged).
			On(domain.PlayerOnline, r.onPlayerChanged).
			On(domain.PlayerOffline, r.onPlayerChanged).
			On(domain.PlayerStatsChanged, r.onPlayerChanged).
			Ignore(domain.GameCreated, domain.GameFinished),
	}
}

var requestStatusByEvent = map[domain.EventType]domain.RequestStatus{
	domain.RequestSent:     domain.StatusPending,
	domain.RequestAccepted: domain.StatusAccepted,
	domain.RequestRejected: domain.StatusRejected,
	domain.RequestExpired:  domain.StatusExpired,
}

func requestSnapshot(e domain.Event) domain.GameRequest {
	return domain.GameRequest{
		ID:         e.RequestID,
		FromPlayer: e.FromPlayer,
		ToPlayer:   e.ToPlayer,
		Status:     requestStatusByEvent[e.Type],
		GameID:     e.GameID,
		UpdatedAt:  e.Timestamp,
	}
}

func (r *Relay) publish(channel string, data any) {
	n := r.broker.Publish(channel, data)
	r.log.Debug("Relayed", zap.String("channel", channel), zap.Int("subscribers", n))
}

func (r *Relay) onRequestSent(_ context.Context, e domain.Event) error {
	r.publish(events.RequestReceivedChannel(e.ToPlayer), requestSnapshot(e))
	return nil
}

func (r *Relay) onRequestResponded(_ context.Context, e domain.Event) error {
	r.publish(events.RequestRespondedChannel(e.FromPlayer), requestSnapshot(e))
	return nil
}

func (r *Relay) onRequestAccepted(ctx context.Context, e domain.Event) error {
	g, err := r.games.GetGame(ctx, e.GameID)
	if errors.Is(err, domain.ErrNotFound) {
		r.log.Warn("Accepted request points at an unknown game", zap.String("requestId", e.RequestID), zap.String("gameId", e.GameID))
		g, err = nil, nil
	}
	if err != nil {
		return err
	}

	r.publish(events.RequestRespondedChannel(e.FromPlayer), requestSnapshot(e))
	if g != nil {
		r.publish(events.RequestAcceptedChannel(e.FromPlayer), g)
		r.publish(events.RequestAcceptedChannel(e.ToPlayer), g)
	}
	return nil
}

func (r *Relay) onMoveMade(_ context.Context, e domain.Event) error {
	if e.Index == nil {
		r.log.Warn("MOVE_MADE without an index", zap.String("eventId", e.ID))
		return nil
	}
	r.publish(events.MoveMadeChannel(e.GameID), MoveNotice{
		GameID:   e.GameID,
		Index:    *e.Index,
		Username: e.Username,
		Symbol:   e.Symbol,
	})
	return nil
}

func (r *Relay) onGameFinished(_ context.Context, e domain.Event) error {
	r.publish(events.GameFinishedChannel(e.GameID), FinishedNotice{
		GameID:  e.GameID,
		Players: e.Players,
		Winner:  e.Winner,
		IsDraw:  e.IsDraw,
	})
	return nil
}

func (r *Relay) onPlayerChanged(_ context.Context, e domain.Event) error {
	r.publish(events.PlayersChanged, PlayerNotice{Type: e.Type, Username: e.Username, Stats: e.Stats})
	return nil
}
