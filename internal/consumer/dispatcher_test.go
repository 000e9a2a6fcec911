package consumer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tictactoe/internal/bus"
	"tictactoe/internal/domain"
)

func TestDispatcherRoutesByType(t *testing.T) {
	var got []domain.EventType
	d := NewDispatcher(zap.NewNop()).
		On(domain.PlayerOnline, func(_ context.Context, e domain.Event) error {
			got = append(got, e.Type)
			return nil
		}).
		Ignore(domain.PlayerStatsChanged)

	for _, typ := range []domain.EventType{domain.PlayerOnline, domain.PlayerStatsChanged, domain.EventType("SOMETHING_NEW")} {
		msg, err := bus.EventMessage(domain.TopicPlayerEvents, domain.PlayerEvent(typ, "alice", time.Now()))
		require.NoError(t, err)
		assert.NoError(t, d.Handle(t.Context(), msg))
	}
	assert.Equal(t, []domain.EventType{domain.PlayerOnline}, got)
}

func TestDispatcherDropsPoison(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	err := d.Handle(t.Context(), bus.Message{Topic: domain.TopicGameEvents, Value: []byte("not json")})
	assert.NoError(t, err)
}

func TestDispatcherPropagatesHandlerErrors(t *testing.T) {
	boom := errors.New("boom")
	d := NewDispatcher(zap.NewNop()).On(domain.MoveMade, func(context.Context, domain.Event) error { return boom })

	msg, err := bus.EventMessage(domain.TopicGameEvents, domain.MoveMadeEvent(domain.MoveResult{GameID: "g"}, time.Now()))
	require.NoError(t, err)
	assert.ErrorIs(t, d.Handle(t.Context(), msg), boom)
}

func TestConsumerRunsEveryRoute(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultRetryPolicy, zap.NewNop())
	seen := make(chan string, 2)
	d := NewDispatcher(zap.NewNop()).
		On(domain.MoveMade, func(_ context.Context, e domain.Event) error { seen <- e.GameID; return nil }).
		On(domain.PlayerOnline, func(_ context.Context, e domain.Event) error { seen <- e.Username; return nil })

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- New(b, "test-group", zap.NewNop()).
			Route(domain.TopicGameEvents, d).
			Route(domain.TopicPlayerEvents, d).
			Run(ctx)
	}()

	for topic, e := range map[string]domain.Event{
		domain.TopicGameEvents:   domain.MoveMadeEvent(domain.MoveResult{GameID: "g1"}, time.Now()),
		domain.TopicPlayerEvents: domain.PlayerEvent(domain.PlayerOnline, "alice", time.Now()),
	} {
		msg, err := bus.EventMessage(topic, e)
		require.NoError(t, err)
		require.NoError(t, b.Publish(t.Context(), msg))
	}

	got := map[string]bool{}
	for range 2 {
		select {
		case v := <-seen:
			got[v] = true
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
	assert.Equal(t, map[string]bool{"g1": true, "alice": true}, got)

	cancel()
	assert.NoError(t, <-done)
}
