// Path: internal/bus/memory.go
package bus

import (
	"context"
	"maps"
	"sync"

	"go.uber.org/zap"
)

// MemoryBus is a process-local Bus. Each topic is a single append-only log and
// each consumer group keeps its own offset into it, so a group created after
// messages were published still receives them.
type MemoryBus struct {
	mu     sync.Mutex
	topics map[string]*memTopic
	closed bool
	retry  RetryPolicy
	log    *zap.Logger
}

type memTopic struct {
	messages []Message
	groups   map[string]*memGroup
	// notify is closed and replaced whenever the topic or a group changes.
	notify chan struct{}
}

type memGroup struct {
	offset int
	busy   bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus(retry RetryPolicy, log *zap.Logger) *MemoryBus {
	return &MemoryBus{
		topics: make(map[string]*memTopic),
		retry:  retry,
		log:    log,
	}
}

func (b *MemoryBus) topic(name string) *memTopic {
	t, ok := b.topics[name]
	if !ok {
		t = &memTopic{groups: make(map[string]*memGroup), notify: make(chan struct{})}
		b.topics[name] = t
	}
	return t
}

func (t *memTopic) broadcast() {
	close(t.notify)
	t.notify = make(chan struct{})
}

// Publish implements Publisher.
func (b *MemoryBus) Publish(_ context.Context, msgs ...Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	touched := make(map[*memTopic]struct{})
	for _, m := range msgs {
		m.Headers = maps.Clone(m.Headers)
		m.Value = append([]byte(nil), m.Value...)
		t := b.topic(m.Topic)
		t.messages = append(t.messages, m)
		touched[t] = struct{}{}
	}
	for t := range touched {
		t.broadcast()
	}
	return nil
}

// Subscribe implements Subscriber. Members of the same group share the work;
// only one of them holds the group's next message at a time.
func (b *MemoryBus) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	log := b.log.With(zap.String("topic", topic), zap.String("group", group))
	for {
		b.mu.Lock()
		t := b.topic(topic)
		g, ok := t.groups[group]
		if !ok {
			g = &memGroup{}
			t.groups[group] = g
		}

		if !g.busy && g.offset < len(t.messages) {
			msg := t.messages[g.offset]
			g.busy = true
			b.mu.Unlock()

			err := deliver(ctx, b.retry, b, log, msg, h)

			b.mu.Lock()
			g.busy = false
			if err == nil {
				g.offset++
			}
			t.broadcast()
			b.mu.Unlock()

			if err != nil {
				return nil
			}
			continue
		}

		notify := t.notify
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case <-notify:
		}
	}
}

// Messages returns a copy of everything published on topic so far.
func (b *MemoryBus) Messages(topic string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[topic]
	if !ok {
		return nil
	}
	return append([]Message(nil), t.messages...)
}

// Close implements Bus. Running subscribers stop when their context ends.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
