// Path: internal/consumer/dispatcher.go
package consumer

import (
	"context"

	"go.uber.org/zap"

	"tictactoe/internal/bus"
	"tictactoe/internal/domain"
)

// HandlerFunc reacts to one decoded event. Returning an error asks the bus to
// redeliver the message.
type HandlerFunc func(ctx context.Context, e domain.Event) error

// Dispatcher routes decoded events to the handler registered for their type.
type Dispatcher struct {
	handlers map[domain.EventType]HandlerFunc
	log      *zap.Logger
}

// NewDispatcher creates a dispatcher with no handlers.
func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[domain.EventType]HandlerFunc),
		log:      log,
	}
}

// On registers h for events of type t.
func (d *Dispatcher) On(t domain.EventType, h HandlerFunc) *Dispatcher {
	d.handlers[t] = h
	return d
}

// Ignore acknowledges events of the given types without doing anything.
func (d *Dispatcher) Ignore(types ...domain.EventType) *Dispatcher {
	for _, t := range types {
		d.handlers[t] = func(context.Context, domain.Event) error { return nil }
	}
	return d
}

// Handle implements bus.Handler. Undecodable messages and unknown event types
// are logged and acknowledged so they cannot block the topic.
func (d *Dispatcher) Handle(ctx context.Context, msg bus.Message) error {
	e, err := bus.DecodeEvent(msg)
	if err != nil {
		d.log.Error("Dropping undecodable message",
			zap.String("topic", msg.Topic), zap.String("key", msg.Key), zap.Error(err))
		return nil
	}

	h, ok := d.handlers[e.Type]
	if !ok {
		d.log.Warn("Unknown event type",
			zap.String("topic", msg.Topic), zap.String("type", string(e.Type)), zap.String("eventId", e.ID))
		return nil
	}
	return h(ctx, e)
}
