// Path: internal/storage/memory.go
package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"tictactoe/internal/domain"
)

// MemoryPlayerStorage is an in-process PlayerStorage.
type MemoryPlayerStorage struct {
	mu      sync.Mutex
	players map[string]*memPlayer
}

type memPlayer struct {
	player  domain.Player
	applied []string
}

func NewMemoryPlayerStorage() *MemoryPlayerStorage {
	return &MemoryPlayerStorage{players: make(map[string]*memPlayer)}
}

func (s *MemoryPlayerStorage) Insert(_ context.Context, p domain.Player, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.players[p.Username]; ok {
		return domain.ErrPlayerExists
	}
	s.players[p.Username] = &memPlayer{player: p, applied: []string{eventID}}
	return nil
}

func (s *MemoryPlayerStorage) FindByUsername(_ context.Context, username string) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mp, ok := s.players[username]
	if !ok {
		return nil, nil
	}
	p := mp.player
	return &p, nil
}

func (s *MemoryPlayerStorage) List(_ context.Context, onlineOnly bool) ([]domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Player, 0, len(s.players))
	for _, mp := range s.players {
		if onlineOnly && !mp.player.IsOnline {
			continue
		}
		out = append(out, mp.player)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

// apply runs fn on the player unless eventID is already in its ledger.
func (s *MemoryPlayerStorage) apply(eventID, username string, fn func(*domain.Player)) (*domain.Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mp, ok := s.players[username]
	if !ok {
		return nil, false, domain.ErrPlayerNotFound
	}
	if slices.Contains(mp.applied, eventID) {
		p := mp.player
		return &p, false, nil
	}
	fn(&mp.player)
	mp.applied = append(mp.applied, eventID)
	if len(mp.applied) > AppliedEventLimit {
		mp.applied = mp.applied[len(mp.applied)-AppliedEventLimit:]
	}
	p := mp.player
	return &p, true, nil
}

func (s *MemoryPlayerStorage) SetPresence(_ context.Context, eventID, username string, online bool, at time.Time) (bool, error) {
	_, applied, err := s.apply(eventID, username, func(p *domain.Player) {
		p.IsOnline = online
		p.LastSeenAt = at
	})
	return applied, err
}

func (s *MemoryPlayerStorage) SetPlaying(_ context.Context, eventID, username string, playing bool) (bool, error) {
	_, applied, err := s.apply(eventID, username, func(p *domain.Player) {
		p.IsPlaying = playing
	})
	return applied, err
}

func (s *MemoryPlayerStorage) RecordOutcome(_ context.Context, eventID, username string, o domain.Outcome) (*domain.Player, bool, error) {
	return s.apply(eventID, username, func(p *domain.Player) {
		p.Stats = p.Stats.Apply(o)
		p.IsPlaying = false
	})
}

// MemoryGameStorage is an in-process GameStorage.
type MemoryGameStorage struct {
	mu    sync.RWMutex
	games map[string]*domain.Game
}

func NewMemoryGameStorage() *MemoryGameStorage {
	return &MemoryGameStorage{games: make(map[string]*domain.Game)}
}

func (s *MemoryGameStorage) Insert(_ context.Context, g *domain.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.ID]; ok {
		return domain.ErrConflict
	}
	s.games[g.ID] = g.Clone()
	return nil
}

func (s *MemoryGameStorage) FindByID(_ context.Context, id string) (*domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, nil
	}
	return g.Clone(), nil
}

func (s *MemoryGameStorage) List(_ context.Context) ([]domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, *g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryGameStorage) Update(_ context.Context, g *domain.Game, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.games[g.ID]
	if !ok {
		return domain.ErrGameNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrStaleWrite
	}
	s.games[g.ID] = g.Clone()
	return nil
}

func (s *MemoryGameStorage) ListUnannounced(_ context.Context, finishedBefore time.Time) ([]domain.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Game
	for _, g := range s.games {
		if g.Status == domain.StatusFinished && g.FinishedEventID != "" && !g.FinishAnnounced &&
			g.UpdatedAt.Before(finishedBefore) {
			out = append(out, *g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// MemoryRequestStorage is an in-process RequestStorage.
type MemoryRequestStorage struct {
	mu       sync.Mutex
	requests map[string]*domain.GameRequest
}

func NewMemoryRequestStorage() *MemoryRequestStorage {
	return &MemoryRequestStorage{requests: make(map[string]*domain.GameRequest)}
}

func (s *MemoryRequestStorage) pendingPairExists(from, to, exceptID string) bool {
	for _, r := range s.requests {
		if r.ID != exceptID && r.Status == domain.StatusPending && r.FromPlayer == from && r.ToPlayer == to {
			return true
		}
	}
	return false
}

func (s *MemoryRequestStorage) InsertPending(_ context.Context, r *domain.GameRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingPairExists(r.FromPlayer, r.ToPlayer, "") {
		return domain.ErrDuplicateRequest
	}
	c := *r
	s.requests[r.ID] = &c
	return nil
}

func (s *MemoryRequestStorage) FindByID(_ context.Context, id string) (*domain.GameRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (s *MemoryRequestStorage) filter(keep func(*domain.GameRequest) bool) []domain.GameRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.GameRequest{}
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryRequestStorage) ListPendingFor(_ context.Context, toPlayer string) ([]domain.GameRequest, error) {
	return s.filter(func(r *domain.GameRequest) bool {
		return r.Status == domain.StatusPending && r.ToPlayer == toPlayer
	}), nil
}

func (s *MemoryRequestStorage) ListExpired(_ context.Context, olderThan time.Time) ([]domain.GameRequest, error) {
	return s.filter(func(r *domain.GameRequest) bool {
		return r.Status == domain.StatusPending && r.CreatedAt.Before(olderThan)
	}), nil
}

func (s *MemoryRequestStorage) Transition(_ context.Context, id string, from, to domain.RequestStatus, gameID string, at time.Time) (*domain.GameRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok || r.Status != from {
		return nil, domain.ErrRequestNotFound
	}
	if to == domain.StatusPending && from != to && s.pendingPairExists(r.FromPlayer, r.ToPlayer, r.ID) {
		return nil, domain.ErrDuplicateRequest
	}
	r.Status = to
	r.GameID = gameID
	r.UpdatedAt = at
	c := *r
	return &c, nil
}
