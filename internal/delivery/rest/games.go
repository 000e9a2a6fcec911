// Path: internal/delivery/rest/games.go
package rest

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tictactoe/internal/domain"
)

type gameService interface {
	CreateSession(ctx context.Context, a, b string) (*domain.Game, error)
	ApplyMove(ctx context.Context, gameID string, index int, player string) (domain.MoveResult, *domain.Game, error)
	GetGame(ctx context.Context, id string) (*domain.Game, error)
	ListGames(ctx context.Context) ([]domain.Game, error)
}

// GameHandlers serves the game service API.
type GameHandlers struct {
	service gameService
	log     *zap.Logger
}

func NewGameHandlers(s gameService, log *zap.Logger) *GameHandlers {
	return &GameHandlers{service: s, log: log}
}

// Register implements Routes.
func (h *GameHandlers) Register(r *mux.Router) {
	r.HandleFunc("/games", h.list).Methods(http.MethodGet)
	r.HandleFunc("/games", h.create).Methods(http.MethodPost)
	r.HandleFunc("/games/make-move", h.makeMove).Methods(http.MethodPost)
	r.HandleFunc("/games/{id}", h.get).Methods(http.MethodGet)
}

func (h *GameHandlers) list(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ListGames(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, games)
}

func (h *GameHandlers) get(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, g)
}

type createGameBody struct {
	FromPlayer string `json:"fromPlayer"`
	ToPlayer   string `json:"toPlayer"`
}

func (h *GameHandlers) create(w http.ResponseWriter, r *http.Request) {
	var body createGameBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	g, err := h.service.CreateSession(r.Context(), body.FromPlayer, body.ToPlayer)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, g)
}

type makeMoveBody struct {
	GameID   string `json:"gameId"`
	Index    *int   `json:"index"`
	Username string `json:"username"`
}

func (h *GameHandlers) makeMove(w http.ResponseWriter, r *http.Request) {
	var body makeMoveBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	if body.Index == nil {
		writeError(w, h.log, domain.ErrInvalidCell)
		return
	}
	_, g, err := h.service.ApplyMove(r.Context(), body.GameID, *body.Index, body.Username)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, g)
}
