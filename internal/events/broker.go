// Path: internal/events/broker.go
package events

import (
	"context"
	"iter"
	"sync"

	"go.uber.org/zap"
)

// DefaultBufferSize is the per-subscriber buffer used when none is configured.
const DefaultBufferSize = 16

// Event represents a message passed through the broker.
type Event struct {
	Channel string `json:"channel"`
	Data    any    `json:"data"`
}

// Broker implements an in-memory pub/sub system keyed by channel name.
// Delivery is live only: a subscriber sees what is published after it
// subscribes, and misses events while its buffer is full.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Subscription]struct{}
	bufferSize  int
	log         *zap.Logger
}

// Subscription is one subscriber's view of one or more channels.
type Subscription struct {
	broker   *Broker
	channels []string
	ch       chan Event
	once     sync.Once
}

// NewBroker creates a new event broker.
func NewBroker(bufferSize int, log *zap.Logger) *Broker {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broker{
		subscribers: make(map[string]map[*Subscription]struct{}),
		bufferSize:  bufferSize,
		log:         log,
	}
}

// Subscribe creates a subscription covering every given channel.
func (b *Broker) Subscribe(channels ...string) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &Subscription{
		broker:   b,
		channels: channels,
		ch:       make(chan Event, b.bufferSize),
	}
	for _, c := range channels {
		if b.subscribers[c] == nil {
			b.subscribers[c] = make(map[*Subscription]struct{})
		}
		b.subscribers[c][sub] = struct{}{}
	}
	return sub
}

// Publish sends data to all current subscribers of channel and returns how
// many received it.
func (b *Broker) Publish(channel string, data any) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	event := Event{Channel: channel, Data: data}
	delivered := 0
	for sub := range b.subscribers[channel] {
		// Non-blocking send
		select {
		case sub.ch <- event:
			delivered++
		default:
			b.log.Debug("Subscriber buffer full, dropping event", zap.String("channel", channel))
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions on channel.
func (b *Broker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}

// C returns the channel events arrive on. It is closed by Cancel.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// Cancel unsubscribes. It is safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		b := s.broker
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, c := range s.channels {
			delete(b.subscribers[c], s)
			if len(b.subscribers[c]) == 0 {
				delete(b.subscribers, c)
			}
		}
		close(s.ch)
	})
}

// All yields events until ctx is done or the consumer stops, then cancels
// the subscription.
func (s *Subscription) All(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		defer s.Cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-s.ch:
				if !ok || !yield(e) {
					return
				}
			}
		}
	}
}
