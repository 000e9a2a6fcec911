// Path: internal/service/session.go
package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tictactoe/internal/consumer"
	"tictactoe/internal/domain"
)

// maxMoveAttempts bounds how often ApplyMove re-reads a game after losing a
// compare-and-set race.
const maxMoveAttempts = 3

// FirstMoverFunc picks which of two players moves first.
type FirstMoverFunc func(a, b string) string

// RandomFirstMover picks uniformly at random.
func RandomFirstMover(a, b string) string {
	if rand.IntN(2) == 0 {
		return a
	}
	return b
}

// SessionEngine owns the authoritative game state.
type SessionEngine struct {
	store      GameStorage
	emit       *Emitter
	firstMover FirstMoverFunc
	now        func() time.Time
	log        *zap.Logger
}

// SessionOption customizes a SessionEngine.
type SessionOption func(*SessionEngine)

// WithFirstMover replaces the random first-mover choice.
func WithFirstMover(fn FirstMoverFunc) SessionOption {
	return func(s *SessionEngine) { s.firstMover = fn }
}

// NewSessionEngine creates the game service.
func NewSessionEngine(store GameStorage, emit *Emitter, log *zap.Logger, opts ...SessionOption) *SessionEngine {
	s := &SessionEngine{
		store:      store,
		emit:       emit,
		firstMover: RandomFirstMover,
		now:        utcNow,
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession starts an ONGOING game. a plays O, b plays X.
func (s *SessionEngine) CreateSession(ctx context.Context, a, b string) (*domain.Game, error) {
	var err error
	if a, err = domain.NormalizeUsername(a); err != nil {
		return nil, domain.ErrInvalidPlayers
	}
	if b, err = domain.NormalizeUsername(b); err != nil {
		return nil, domain.ErrInvalidPlayers
	}
	g, err := domain.NewGame(uuid.NewString(), a, b, s.firstMover(a, b), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, g); err != nil {
		return nil, err
	}
	s.log.Info("Session created",
		zap.String("gameId", g.ID), zap.Strings("players", g.Players), zap.String("firstMover", g.CurrentPlayer))
	return g, nil
}

// ApplyMove validates and applies one move, then announces it. A move that
// ends the game is also announced as GAME_FINISHED to the game and player topics.
func (s *SessionEngine) ApplyMove(ctx context.Context, gameID string, index int, player string) (domain.MoveResult, *domain.Game, error) {
	for attempt := 1; ; attempt++ {
		g, err := s.store.FindByID(ctx, gameID)
		if err != nil {
			return domain.MoveResult{}, nil, err
		}
		if g == nil {
			return domain.MoveResult{}, nil, domain.ErrGameNotFound
		}

		now := s.now()
		res, err := g.ApplyMove(index, player, now)
		if err != nil {
			return domain.MoveResult{}, nil, err
		}

		expected := g.Version
		g.Version++
		err = s.store.Update(ctx, g, expected)
		if errors.Is(err, domain.ErrStaleWrite) && attempt < maxMoveAttempts {
			s.log.Debug("Lost move race, retrying", zap.String("gameId", gameID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return domain.MoveResult{}, nil, err
		}

		if err := s.emit.Emit(ctx, domain.TopicGameEvents, domain.MoveMadeEvent(res, now)); err != nil {
			return domain.MoveResult{}, nil, err
		}
		if res.Finished {
			if err := s.announceFinished(ctx, g); err != nil {
				return domain.MoveResult{}, nil, err
			}
			s.log.Info("Session finished",
				zap.String("gameId", g.ID), zap.Stringp("winner", g.Winner), zap.Bool("isDraw", g.IsDraw))
		}
		return res, g, nil
	}
}

// announceFinished publishes GAME_FINISHED to the game and player topics and
// records that it went out. A game left unannounced is picked up again by
// AnnounceUnannounced; consumers dedupe on the fixed event id.
func (s *SessionEngine) announceFinished(ctx context.Context, g *domain.Game) error {
	finished := domain.GameFinishedEvent(g, g.UpdatedAt)
	if err := s.emit.Emit(ctx, domain.TopicGameEvents, finished); err != nil {
		return err
	}
	if err := s.emit.Emit(ctx, domain.TopicPlayerEvents, finished); err != nil {
		return err
	}

	expected := g.Version
	g.FinishAnnounced = true
	g.Version++
	if err := s.store.Update(ctx, g, expected); err != nil {
		g.FinishAnnounced = false
		g.Version = expected
		s.log.Warn("Failed to record finish announcement",
			zap.String("gameId", g.ID), zap.String("eventId", finished.ID), zap.Error(err))
	}
	return nil
}

// AnnounceUnannounced republishes the outcome of games that finished before
// finishedBefore but whose GAME_FINISHED was never confirmed as published.
// It returns how many it announced.
func (s *SessionEngine) AnnounceUnannounced(ctx context.Context, finishedBefore time.Time) (int, error) {
	games, err := s.store.ListUnannounced(ctx, finishedBefore)
	if err != nil {
		return 0, err
	}
	announced := 0
	for i := range games {
		g := &games[i]
		if err := s.announceFinished(ctx, g); err != nil {
			return announced, err
		}
		s.log.Info("Announced finished session", zap.String("gameId", g.ID), zap.String("eventId", g.FinishedEventID))
		announced++
	}
	return announced, nil
}

// GetGame returns a game or domain.ErrGameNotFound.
func (s *SessionEngine) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	g, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, domain.ErrGameNotFound
	}
	return g, nil
}

// ListGames returns every game, newest first.
func (s *SessionEngine) ListGames(ctx context.Context) ([]domain.Game, error) {
	return s.store.List(ctx)
}

// Dispatcher returns the game service's audit handlers for game-events.
func (s *SessionEngine) Dispatcher() *consumer.Dispatcher {
	return consumer.NewDispatcher(s.log).
		On(domain.GameCreated, s.onGameCreated).
		On(domain.MoveMade, s.logEvent).
		On(domain.GameFinished, s.logEvent)
}

func (s *SessionEngine) onGameCreated(ctx context.Context, e domain.Event) error {
	g, err := s.store.FindByID(ctx, e.GameID)
	if err != nil {
		return err
	}
	if g == nil {
		s.log.Warn("GAME_CREATED for a session this service does not know", zap.String("gameId", e.GameID))
		return nil
	}
	return s.logEvent(ctx, e)
}

func (s *SessionEngine) logEvent(_ context.Context, e domain.Event) error {
	s.log.Debug("Event observed", zap.String("type", string(e.Type)), zap.String("gameId", e.GameID), zap.String("eventId", e.ID))
	return nil
}
