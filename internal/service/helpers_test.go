package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tictactoe/internal/bus"
	"tictactoe/internal/domain"
	"tictactoe/internal/storage"
)

var fastRetry = bus.RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, MaxAttempts: 3}

type harness struct {
	bus      *bus.MemoryBus
	players  *PlayerDirectory
	sessions *SessionEngine
	requests *RequestBroker

	playerStore  *storage.MemoryPlayerStorage
	gameStore    *storage.MemoryGameStorage
	requestStore *storage.MemoryRequestStorage
}

// newHarness wires every service over in-memory stores. first decides who
// moves first in new sessions.
func newHarness(t *testing.T, first FirstMoverFunc) *harness {
	t.Helper()
	log := zap.NewNop()
	b := bus.NewMemoryBus(fastRetry, log)
	emit := NewEmitter(b, fastRetry, log)

	h := &harness{
		bus:          b,
		playerStore:  storage.NewMemoryPlayerStorage(),
		gameStore:    storage.NewMemoryGameStorage(),
		requestStore: storage.NewMemoryRequestStorage(),
	}
	h.players = NewPlayerDirectory(h.playerStore, emit, log)
	h.sessions = NewSessionEngine(h.gameStore, emit, log, WithFirstMover(first))
	h.requests = NewRequestBroker(h.requestStore, h.sessions, emit, log)
	return h
}

func firstArg(a, _ string) string  { return a }
func secondArg(_, b string) string { return b }

// published decodes every event on topic so far.
func (h *harness) published(t *testing.T, topic string) []domain.Event {
	t.Helper()
	var out []domain.Event
	for _, m := range h.bus.Messages(topic) {
		e, err := bus.DecodeEvent(m)
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func (h *harness) publishedTypes(t *testing.T, topic string) []domain.EventType {
	t.Helper()
	var out []domain.EventType
	for _, e := range h.published(t, topic) {
		out = append(out, e.Type)
	}
	return out
}

// deliver feeds every event already on topic through d, as a consumer would.
func (h *harness) deliver(t *testing.T, topic string, handle func(context.Context, bus.Message) error) {
	t.Helper()
	for _, m := range h.bus.Messages(topic) {
		require.NoError(t, handle(t.Context(), m))
	}
}

func mustMessage(t *testing.T, topic string, e domain.Event) bus.Message {
	t.Helper()
	msg, err := bus.EventMessage(topic, e)
	require.NoError(t, err)
	return msg
}
