// Path: internal/consumer/consumer.go
package consumer

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tictactoe/internal/bus"
)

// Consumer runs one subscription loop per routed topic under a single
// consumer group.
type Consumer struct {
	sub    bus.Subscriber
	group  string
	routes map[string]bus.Handler
	log    *zap.Logger
}

// New creates a consumer for group.
func New(sub bus.Subscriber, group string, log *zap.Logger) *Consumer {
	return &Consumer{
		sub:    sub,
		group:  group,
		routes: make(map[string]bus.Handler),
		log:    log.With(zap.String("group", group)),
	}
}

// Route feeds topic to d.
func (c *Consumer) Route(topic string, d *Dispatcher) *Consumer {
	c.routes[topic] = d.Handle
	return c
}

// Run blocks until ctx is cancelled or a subscription fails to start.
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for topic, h := range c.routes {
		g.Go(func() error {
			c.log.Info("Consuming topic", zap.String("topic", topic))
			return c.sub.Subscribe(ctx, topic, c.group, h)
		})
	}
	err := g.Wait()
	c.log.Info("Consumer stopped")
	return err
}
