// Path: internal/delivery/rest/requests.go
package rest

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tictactoe/internal/domain"
)

type requestService interface {
	SendRequest(ctx context.Context, from, to string) (*domain.GameRequest, error)
	RespondToRequest(ctx context.Context, id, decision string) (*domain.GameRequest, error)
	GetRequest(ctx context.Context, id string) (*domain.GameRequest, error)
	ListPending(ctx context.Context, toPlayer string) ([]domain.GameRequest, error)
}

// RequestHandlers serves the game-request service API.
type RequestHandlers struct {
	service requestService
	log     *zap.Logger
}

func NewRequestHandlers(s requestService, log *zap.Logger) *RequestHandlers {
	return &RequestHandlers{service: s, log: log}
}

// Register implements Routes.
func (h *RequestHandlers) Register(r *mux.Router) {
	r.HandleFunc("/gameRequest/send-game-request", h.send).Methods(http.MethodPost)
	r.HandleFunc("/gameRequest/respond-game-request", h.respond).Methods(http.MethodPost)
	r.HandleFunc("/gameRequest/request/{id}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/gameRequest/{username}", h.pending).Methods(http.MethodGet)
}

type sendRequestBody struct {
	FromPlayer string `json:"fromPlayer"`
	ToPlayer   string `json:"toPlayer"`
}

func (h *RequestHandlers) send(w http.ResponseWriter, r *http.Request) {
	var body sendRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	req, err := h.service.SendRequest(r.Context(), body.FromPlayer, body.ToPlayer)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusCreated, req)
}

type respondBody struct {
	RequestID string `json:"requestId"`
	Response  string `json:"response"`
}

func (h *RequestHandlers) respond(w http.ResponseWriter, r *http.Request) {
	var body respondBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, h.log, err)
		return
	}
	req, err := h.service.RespondToRequest(r.Context(), body.RequestID, body.Response)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, req)
}

func (h *RequestHandlers) get(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.GetRequest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, req)
}

func (h *RequestHandlers) pending(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.ListPending(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, reqs)
}
