package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBrokerDeliversOnlyToMatchingChannel(t *testing.T) {
	b := NewBroker(4, zap.NewNop())
	moves := b.Subscribe(MoveMadeChannel("g1"))
	other := b.Subscribe(MoveMadeChannel("g2"))
	defer moves.Cancel()
	defer other.Cancel()

	assert.Equal(t, 1, b.Publish(MoveMadeChannel("g1"), 4))

	e := <-moves.C()
	assert.Equal(t, "MOVE_MADE_g1", e.Channel)
	assert.Equal(t, 4, e.Data)
	assert.Empty(t, other.C())
}

func TestBrokerNoReplay(t *testing.T) {
	b := NewBroker(4, zap.NewNop())
	b.Publish(PlayersChanged, "before")
	sub := b.Subscribe(PlayersChanged)
	defer sub.Cancel()
	assert.Empty(t, sub.C())
}

func TestBrokerDropsWhenBufferFull(t *testing.T) {
	b := NewBroker(1, zap.NewNop())
	sub := b.Subscribe(PlayersChanged)
	defer sub.Cancel()

	assert.Equal(t, 1, b.Publish(PlayersChanged, 1))
	assert.Equal(t, 0, b.Publish(PlayersChanged, 2))
	assert.Equal(t, 1, (<-sub.C()).Data)
}

func TestBrokerCancel(t *testing.T) {
	b := NewBroker(1, zap.NewNop())
	sub := b.Subscribe(RequestReceivedChannel("bob"), RequestRespondedChannel("bob"))
	assert.Equal(t, 1, b.Subscribers(RequestReceivedChannel("bob")))

	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 0, b.Subscribers(RequestReceivedChannel("bob")))
	assert.Equal(t, 0, b.Publish(RequestReceivedChannel("bob"), "x"))
	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestSubscriptionAll(t *testing.T) {
	b := NewBroker(4, zap.NewNop())
	sub := b.Subscribe(RequestReceivedChannel("bob"), RequestAcceptedChannel("bob"))
	b.Publish(RequestReceivedChannel("bob"), "r1")
	b.Publish(RequestAcceptedChannel("bob"), "g1")

	var got []string
	for e := range sub.All(t.Context()) {
		got = append(got, e.Channel)
		if len(got) == 2 {
			break
		}
	}
	require.Equal(t, []string{"GAME_REQUEST_RECEIVED_bob", "GAME_REQUEST_ACCEPTED_bob"}, got)
	assert.Equal(t, 0, b.Subscribers(RequestReceivedChannel("bob")))
}

func TestSubscriptionAllStopsOnContext(t *testing.T) {
	b := NewBroker(4, zap.NewNop())
	sub := b.Subscribe(PlayersChanged)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	for range sub.All(ctx) {
		t.Fatal("unexpected event")
	}
	assert.Equal(t, 0, b.Subscribers(PlayersChanged))
}
