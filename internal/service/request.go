// Path: internal/service/request.go
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tictactoe/internal/consumer"
	"tictactoe/internal/domain"
)

// SessionCreator starts a game between two players. The request broker calls
// it synchronously when a request is accepted.
type SessionCreator interface {
	CreateSession(ctx context.Context, a, b string) (*domain.Game, error)
}

// RequestBroker owns the lifecycle of game requests.
type RequestBroker struct {
	store    RequestStorage
	sessions SessionCreator
	emit     *Emitter
	now      func() time.Time
	log      *zap.Logger
}

// NewRequestBroker creates the game-request service.
func NewRequestBroker(store RequestStorage, sessions SessionCreator, emit *Emitter, log *zap.Logger) *RequestBroker {
	return &RequestBroker{store: store, sessions: sessions, emit: emit, now: utcNow, log: log}
}

// SendRequest invites to to play against from.
func (b *RequestBroker) SendRequest(ctx context.Context, from, to string) (*domain.GameRequest, error) {
	from, err := domain.NormalizeUsername(from)
	if err != nil {
		return nil, err
	}
	to, err = domain.NormalizeUsername(to)
	if err != nil {
		return nil, err
	}
	if from == to {
		return nil, domain.ErrSelfRequest
	}

	now := b.now()
	r := &domain.GameRequest{
		ID:         uuid.NewString(),
		FromPlayer: from,
		ToPlayer:   to,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := b.store.InsertPending(ctx, r); err != nil {
		return nil, err
	}
	if err := b.emit.Emit(ctx, domain.TopicRequestEvents, domain.RequestEvent(domain.RequestSent, r, now)); err != nil {
		return nil, err
	}
	b.log.Info("Game request sent", zap.String("requestId", r.ID), zap.String("from", from), zap.String("to", to))
	return r, nil
}

// RespondToRequest accepts or rejects a pending request. Accepting creates the
// session; if that fails the request goes back to pending.
func (b *RequestBroker) RespondToRequest(ctx context.Context, id, decision string) (*domain.GameRequest, error) {
	status, err := domain.ParseDecision(decision)
	if err != nil {
		return nil, err
	}
	if status == domain.StatusRejected {
		return b.reject(ctx, id)
	}
	return b.accept(ctx, id)
}

func (b *RequestBroker) reject(ctx context.Context, id string) (*domain.GameRequest, error) {
	now := b.now()
	r, err := b.store.Transition(ctx, id, domain.StatusPending, domain.StatusRejected, "", now)
	if err != nil {
		return nil, err
	}
	if err := b.emit.Emit(ctx, domain.TopicRequestEvents, domain.RequestEvent(domain.RequestRejected, r, now)); err != nil {
		return nil, err
	}
	b.log.Info("Game request rejected", zap.String("requestId", id))
	return r, nil
}

func (b *RequestBroker) accept(ctx context.Context, id string) (*domain.GameRequest, error) {
	r, err := b.store.Transition(ctx, id, domain.StatusPending, domain.StatusAccepted, "", b.now())
	if err != nil {
		return nil, err
	}

	g, err := b.sessions.CreateSession(ctx, r.FromPlayer, r.ToPlayer)
	if err != nil {
		b.compensate(ctx, id, err)
		return nil, fmt.Errorf("%w: failed to create session: %v", domain.ErrDependency, err)
	}

	now := b.now()
	r, err = b.store.Transition(ctx, id, domain.StatusAccepted, domain.StatusAccepted, g.ID, now)
	if err != nil {
		b.compensate(ctx, id, err)
		b.log.Warn("Session abandoned, request was not linked to it",
			zap.String("requestId", id), zap.String("gameId", g.ID))
		return nil, fmt.Errorf("failed to link session %s to request: %w", g.ID, err)
	}

	if err := b.emit.Emit(ctx, domain.TopicRequestEvents, domain.RequestEvent(domain.RequestAccepted, r, now)); err != nil {
		return nil, err
	}
	created := domain.GameCreatedEvent(g, now)
	if err := b.emit.Emit(ctx, domain.TopicGameEvents, created); err != nil {
		return nil, err
	}
	if err := b.emit.Emit(ctx, domain.TopicPlayerEvents, created); err != nil {
		return nil, err
	}
	b.log.Info("Game request accepted", zap.String("requestId", id), zap.String("gameId", g.ID))
	return r, nil
}

// compensate puts an accepted request back to pending after the session
// could not be created or linked to it.
func (b *RequestBroker) compensate(ctx context.Context, id string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := b.store.Transition(ctx, id, domain.StatusAccepted, domain.StatusPending, "", b.now()); err != nil {
		b.log.Error("Failed to roll request back to pending",
			zap.String("requestId", id), zap.NamedError("cause", cause), zap.Error(err))
		return
	}
	b.log.Warn("Session creation failed, request is pending again", zap.String("requestId", id), zap.Error(cause))
}

// ExpireStale moves pending requests created before olderThan to expired and
// returns how many it expired.
func (b *RequestBroker) ExpireStale(ctx context.Context, olderThan time.Time) (int, error) {
	stale, err := b.store.ListExpired(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, s := range stale {
		now := b.now()
		r, err := b.store.Transition(ctx, s.ID, domain.StatusPending, domain.StatusExpired, "", now)
		if errors.Is(err, domain.ErrRequestNotFound) {
			continue // answered in the meantime
		}
		if err != nil {
			return expired, err
		}
		if err := b.emit.Emit(ctx, domain.TopicRequestEvents, domain.RequestEvent(domain.RequestExpired, r, now)); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// GetRequest returns a request or domain.ErrRequestNotFound.
func (b *RequestBroker) GetRequest(ctx context.Context, id string) (*domain.GameRequest, error) {
	r, err := b.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.ErrRequestNotFound
	}
	return r, nil
}

// ListPending returns the requests waiting on a player's answer.
func (b *RequestBroker) ListPending(ctx context.Context, toPlayer string) ([]domain.GameRequest, error) {
	u, err := domain.NormalizeUsername(toPlayer)
	if err != nil {
		return nil, err
	}
	return b.store.ListPendingFor(ctx, u)
}

// Dispatcher returns the request service's audit handlers for game-request-events.
func (b *RequestBroker) Dispatcher() *consumer.Dispatcher {
	audit := func(_ context.Context, e domain.Event) error {
		b.log.Debug("Event observed",
			zap.String("type", string(e.Type)), zap.String("requestId", e.RequestID), zap.String("eventId", e.ID))
		return nil
	}
	return consumer.NewDispatcher(b.log).
		On(domain.RequestSent, audit).
		On(domain.RequestAccepted, audit).
		On(domain.RequestRejected, audit).
		On(domain.RequestExpired, audit)
}
