// Path: internal/delivery/rest/players.go
package rest

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tictactoe/internal/domain"
)

// playerService defines what the player handlers need from the core service.
type playerService interface {
	CreatePlayer(ctx context.Context, username string) (*domain.Player, error)
	MarkOnline(ctx context.Context, username string) (*domain.Player, error)
	MarkOffline(ctx context.Context, username string) (*domain.Player, error)
	GetPlayer(ctx context.Context, username string) (*domain.Player, error)
	ListPlayers(ctx context.Context, onlineOnly bool) ([]domain.Player, error)
}

// PlayerHandlers serves the player service API.
type PlayerHandlers struct {
	service playerService
	log     *zap.Logger
}

func NewPlayerHandlers(s playerService, log *zap.Logger) *PlayerHandlers {
	return &PlayerHandlers{service: s, log: log}
}

// Register implements Routes.
func (h *PlayerHandlers) Register(r *mux.Router) {
	r.HandleFunc("/players", h.list(false)).Methods(http.MethodGet)
	r.HandleFunc("/players/online", h.list(true)).Methods(http.MethodGet)
	r.HandleFunc("/players/{username}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/players", h.create).Methods(http.MethodPost)
	r.HandleFunc("/players/mark-online/{username}", h.presence(h.service.MarkOnline)).Methods(http.MethodPatch)
	r.HandleFunc("/players/mark-offline/{username}", h.presence(h.service.MarkOffline)).Methods(http.MethodPatch)
}

func (h *PlayerHandlers) list(onlineOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := h.service.ListPlayers(r.Context(), onlineOnly)
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeJSON(w, h.log, http.StatusOK, players)
	}
}

func (h *PlayerHandlers) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPlayer(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, p)
}

type createPlayerBody struct {
	Username string `json:"username"`
}

func (h *PlayerHandlers) create(w http.ResponseWriter, r *http.Request) {
	var body createPlayerBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	p, err := h.service.CreatePlayer(r.Context(), body.Username)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, p)
}

func (h *PlayerHandlers) presence(fn func(context.Context, string) (*domain.Player, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := fn(r.Context(), mux.Vars(r)["username"])
		if err != nil {
			writeError(w, h.log, err)
			return
		}
		writeJSON(w, h.log, http.StatusOK, p)
	}
}
