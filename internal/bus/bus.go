// Path: internal/bus/bus.go
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tictactoe/internal/domain"
)

// Transport headers attached to every event message.
const (
	HeaderEventType = "eventType"
	HeaderEventID   = "eventId"
	HeaderSource    = "source"
)

// ErrClosed is returned when publishing on a closed bus.
var ErrClosed = errors.New("bus: closed")

// Message is one record on a topic. Messages with the same Key are delivered
// to a consumer group in the order they were published.
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// Handler processes one message. A non-nil error means the message was not
// processed and must be delivered again.
type Handler func(ctx context.Context, msg Message) error

// Publisher appends messages to their topics.
type Publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
}

// Subscriber consumes a topic as a member of a consumer group.
type Subscriber interface {
	// Subscribe feeds the group's messages to h one at a time, committing each
	// after h succeeds. It blocks until ctx is cancelled; the in-flight message
	// is finished but only committed if it was processed.
	Subscribe(ctx context.Context, topic, group string, h Handler) error
}

// Bus is a durable, per-key ordered, at-least-once event log.
type Bus interface {
	Publisher
	Subscriber
	Close() error
}

// EventMessage encodes an event for topic, keyed by its delivery key.
func EventMessage(topic string, e domain.Event) (Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return Message{}, fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	return Message{
		Topic: topic,
		Key:   e.Key(),
		Value: value,
		Headers: map[string]string{
			HeaderEventType: string(e.Type),
			HeaderEventID:   e.ID,
			HeaderSource:    e.Source,
		},
	}, nil
}

// DecodeEvent parses a message produced by EventMessage.
func DecodeEvent(msg Message) (domain.Event, error) {
	var e domain.Event
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		return domain.Event{}, fmt.Errorf("failed to decode message on %s: %w", msg.Topic, err)
	}
	if e.Type == "" {
		return domain.Event{}, fmt.Errorf("message on %s has no event type", msg.Topic)
	}
	return e, nil
}

// DeadLetterTopic names the topic exhausted messages from topic are moved to.
func DeadLetterTopic(topic string) string {
	return topic + ".dead-letter"
}
