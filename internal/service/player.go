// Path: internal/service/player.go
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tictactoe/internal/consumer"
	"tictactoe/internal/domain"
)

// PlayerDirectory owns player identity, presence and statistics. Commands
// apply their own event locally before publishing it, so the caller reads its
// write; the redelivered copy is absorbed by the store's event ledger.
type PlayerDirectory struct {
	store PlayerStorage
	emit  *Emitter
	now   func() time.Time
	log   *zap.Logger
}

// NewPlayerDirectory creates the player service.
func NewPlayerDirectory(store PlayerStorage, emit *Emitter, log *zap.Logger) *PlayerDirectory {
	return &PlayerDirectory{store: store, emit: emit, now: utcNow, log: log}
}

// CreatePlayer registers a new, online player.
func (d *PlayerDirectory) CreatePlayer(ctx context.Context, username string) (*domain.Player, error) {
	u, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	e := domain.PlayerEvent(domain.PlayerCreated, u, d.now())
	if err := d.store.Insert(ctx, newPlayer(e), e.ID); err != nil {
		return nil, err
	}
	if err := d.emit.Emit(ctx, domain.TopicPlayerEvents, e); err != nil {
		return nil, err
	}
	d.log.Info("Player created", zap.String("username", u))
	return d.GetPlayer(ctx, u)
}

// MarkOnline records that a player connected.
func (d *PlayerDirectory) MarkOnline(ctx context.Context, username string) (*domain.Player, error) {
	return d.setPresence(ctx, username, domain.PlayerOnline)
}

// MarkOffline records that a player disconnected.
func (d *PlayerDirectory) MarkOffline(ctx context.Context, username string) (*domain.Player, error) {
	return d.setPresence(ctx, username, domain.PlayerOffline)
}

func (d *PlayerDirectory) setPresence(ctx context.Context, username string, t domain.EventType) (*domain.Player, error) {
	u, err := domain.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	e := domain.PlayerEvent(t, u, d.now())
	if _, err := d.store.SetPresence(ctx, e.ID, u, t == domain.PlayerOnline, e.Timestamp); err != nil {
		return nil, err
	}
	if err := d.emit.Emit(ctx, domain.TopicPlayerEvents, e); err != nil {
		return nil, err
	}
	return d.GetPlayer(ctx, u)
}

// GetPlayer returns a player or domain.ErrPlayerNotFound.
func (d *PlayerDirectory) GetPlayer(ctx context.Context, username string) (*domain.Player, error) {
	p, err := d.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrPlayerNotFound
	}
	return p, nil
}

// ListPlayers returns all players, or only the online ones.
func (d *PlayerDirectory) ListPlayers(ctx context.Context, onlineOnly bool) ([]domain.Player, error) {
	return d.store.List(ctx, onlineOnly)
}

// Dispatcher returns the handlers the player service runs on player-events.
func (d *PlayerDirectory) Dispatcher() *consumer.Dispatcher {
	return consumer.NewDispatcher(d.log).
		On(domain.PlayerCreated, d.onPlayerCreated).
		On(domain.PlayerOnline, d.onPresence).
		On(domain.PlayerOffline, d.onPresence).
		On(domain.GameCreated, d.onGameCreated).
		On(domain.GameFinished, d.onGameFinished).
		Ignore(domain.PlayerStatsChanged)
}

func newPlayer(e domain.Event) domain.Player {
	return domain.Player{
		Username:   e.Username,
		IsOnline:   true,
		CreatedAt:  e.Timestamp,
		LastSeenAt: e.Timestamp,
	}
}

func (d *PlayerDirectory) onPlayerCreated(ctx context.Context, e domain.Event) error {
	err := d.store.Insert(ctx, newPlayer(e), e.ID)
	if errors.Is(err, domain.ErrPlayerExists) {
		return nil
	}
	return err
}

func (d *PlayerDirectory) onPresence(ctx context.Context, e domain.Event) error {
	_, err := d.store.SetPresence(ctx, e.ID, e.Username, e.Type == domain.PlayerOnline, e.Timestamp)
	if errors.Is(err, domain.ErrPlayerNotFound) {
		d.log.Warn("Presence event for unknown player", zap.String("username", e.Username), zap.String("eventId", e.ID))
		return nil
	}
	return err
}

func (d *PlayerDirectory) onGameCreated(ctx context.Context, e domain.Event) error {
	for _, p := range e.Players {
		_, err := d.store.SetPlaying(ctx, e.ID, p, true)
		if errors.Is(err, domain.ErrPlayerNotFound) {
			d.log.Warn("Game created for unknown player", zap.String("username", p), zap.String("gameId", e.GameID))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *PlayerDirectory) onGameFinished(ctx context.Context, e domain.Event) error {
	outcomes := e.Outcomes()
	for _, username := range e.Players {
		o, ok := outcomes[username]
		if !ok {
			continue
		}
		p, applied, err := d.store.RecordOutcome(ctx, e.ID, username, o)
		if errors.Is(err, domain.ErrPlayerNotFound) {
			d.log.Warn("Game finished for unknown player", zap.String("username", username), zap.String("gameId", e.GameID))
			continue
		}
		if err != nil {
			return err
		}
		if applied {
			d.log.Info("Player stats updated",
				zap.String("username", username), zap.String("outcome", string(o)), zap.Int("totalGames", p.Stats.TotalGames))
		}
		// Re-emitted on redelivery too, so a failed publish is never lost.
		if err := d.emit.Emit(ctx, domain.TopicPlayerEvents, domain.StatsChangedEvent(p, d.now())); err != nil {
			return err
		}
	}
	return nil
}
