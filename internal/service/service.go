// Path: internal/service/service.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tictactoe/internal/bus"
	"tictactoe/internal/domain"
)

// Consumer groups, one per service.
const (
	GroupPlayerService  = "player-service-group"
	GroupGameService    = "game-service-group"
	GroupRequestService = "game-request-service-group"
	GroupRealtime       = "realtime-group"
)

// Emitter publishes domain events on the bus.
type Emitter struct {
	pub   bus.Publisher
	retry bus.RetryPolicy
	log   *zap.Logger
}

// NewEmitter creates an emitter that retries failed publishes with retry.
func NewEmitter(pub bus.Publisher, retry bus.RetryPolicy, log *zap.Logger) *Emitter {
	return &Emitter{pub: pub, retry: retry, log: log}
}

// Emit publishes events on topic in order.
func (e *Emitter) Emit(ctx context.Context, topic string, events ...domain.Event) error {
	msgs := make([]bus.Message, 0, len(events))
	for _, ev := range events {
		msg, err := bus.EventMessage(topic, ev)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := bus.PublishWithRetry(ctx, e.pub, e.retry, msgs...); err != nil {
		e.log.Error("Failed to publish events", zap.String("topic", topic), zap.Int("count", len(msgs)), zap.Error(err))
		return fmt.Errorf("%w: failed to publish to %s: %v", domain.ErrTransient, topic, err)
	}
	for _, ev := range events {
		e.log.Debug("Event published",
			zap.String("topic", topic), zap.String("type", string(ev.Type)), zap.String("eventId", ev.ID), zap.String("key", ev.Key()))
	}
	return nil
}

func utcNow() time.Time { return time.Now().UTC() }
