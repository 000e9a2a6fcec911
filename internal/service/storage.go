// Path: internal/service/storage.go
package service

import (
	"context"
	"time"

	"tictactoe/internal/domain"
)

// PlayerStorage persists players. Every mutation carries the id of the event
// that caused it and is applied at most once per event id.
type PlayerStorage interface {
	// Insert creates a player and records eventID as applied to it.
	// It returns domain.ErrPlayerExists if the username is taken.
	Insert(ctx context.Context, p domain.Player, eventID string) error

	// FindByUsername returns nil, nil when the player does not exist.
	FindByUsername(ctx context.Context, username string) (*domain.Player, error)

	List(ctx context.Context, onlineOnly bool) ([]domain.Player, error)

	// SetPresence sets isOnline and lastSeenAt. applied is false when eventID
	// was already applied to this player.
	SetPresence(ctx context.Context, eventID, username string, online bool, at time.Time) (applied bool, err error)

	SetPlaying(ctx context.Context, eventID, username string, playing bool) (applied bool, err error)

	// RecordOutcome adds one game with outcome o to the player's stats and
	// clears isPlaying, returning the updated player.
	RecordOutcome(ctx context.Context, eventID, username string, o domain.Outcome) (p *domain.Player, applied bool, err error)
}

// GameStorage persists sessions with optimistic concurrency on Version.
type GameStorage interface {
	Insert(ctx context.Context, g *domain.Game) error

	// FindByID returns nil, nil when the game does not exist.
	FindByID(ctx context.Context, id string) (*domain.Game, error)

	List(ctx context.Context) ([]domain.Game, error)

	// Update replaces the stored game only if its version is still
	// expectedVersion, otherwise it returns domain.ErrStaleWrite.
	Update(ctx context.Context, g *domain.Game, expectedVersion int64) error

	// ListUnannounced returns finished games last updated before
	// finishedBefore whose outcome was never confirmed as published.
	ListUnannounced(ctx context.Context, finishedBefore time.Time) ([]domain.Game, error)
}

// RequestStorage persists game requests.
type RequestStorage interface {
	// InsertPending stores a new pending request, failing with
	// domain.ErrDuplicateRequest if the pair already has one pending.
	InsertPending(ctx context.Context, r *domain.GameRequest) error

	// FindByID returns nil, nil when the request does not exist.
	FindByID(ctx context.Context, id string) (*domain.GameRequest, error)

	// ListPendingFor returns the pending requests addressed to a player, oldest first.
	ListPendingFor(ctx context.Context, toPlayer string) ([]domain.GameRequest, error)

	// Transition atomically moves a request from one status to another and sets
	// its game id (an empty gameID clears it). It returns
	// domain.ErrRequestNotFound if the request is missing or not in status from.
	Transition(ctx context.Context, id string, from, to domain.RequestStatus, gameID string, at time.Time) (*domain.GameRequest, error)

	// ListExpired returns pending requests created before olderThan.
	ListExpired(ctx context.Context, olderThan time.Time) ([]domain.GameRequest, error)
}
