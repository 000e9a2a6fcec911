// Path: internal/bus/retry.go
package bus

import (
	"context"
	"errors"
	"maps"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy controls redelivery of messages whose handler failed.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxAttempts of 0 retries forever. Otherwise the message is copied to the
	// dead-letter topic and committed after this many failed attempts.
	MaxAttempts int
}

// DefaultRetryPolicy retries forever, backing off from 200ms up to 30s.
var DefaultRetryPolicy = RetryPolicy{
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     30 * time.Second,
}

func (p RetryPolicy) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.Reset()
	return b
}

// wait sleeps for d or until ctx is done, reporting whether the full wait elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// deliver runs h until it succeeds, the policy gives up, or ctx is cancelled.
// A nil return means the message may be committed. Handler attempts run on a
// context detached from ctx so a stop request never interrupts one midway.
func deliver(ctx context.Context, p RetryPolicy, dlq Publisher, log *zap.Logger, msg Message, h Handler) error {
	b := p.newBackOff()
	for attempt := 1; ; attempt++ {
		err := h(context.WithoutCancel(ctx), msg)
		if err == nil {
			return nil
		}

		fields := []zap.Field{
			zap.String("topic", msg.Topic),
			zap.String("key", msg.Key),
			zap.String("eventType", msg.Headers[HeaderEventType]),
			zap.Int("attempt", attempt),
			zap.Error(err),
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			dead := Message{
				Topic:   DeadLetterTopic(msg.Topic),
				Key:     msg.Key,
				Value:   msg.Value,
				Headers: maps.Clone(msg.Headers),
			}
			if dead.Headers == nil {
				dead.Headers = map[string]string{}
			}
			dead.Headers["error"] = err.Error()
			dead.Headers["attempts"] = strconv.Itoa(attempt)
			dlqErr := dlq.Publish(context.WithoutCancel(ctx), dead)
			if dlqErr == nil {
				log.Error("Message moved to dead-letter topic", fields...)
				return nil
			}
			log.Error("Failed to dead-letter message", append(fields, zap.NamedError("dlqError", dlqErr))...)
		} else {
			log.Warn("Handler failed, will retry", fields...)
		}

		if !wait(ctx, b.NextBackOff()) {
			return ctx.Err()
		}
	}
}

// PublishWithRetry publishes msgs, retrying transient failures with the
// policy's backoff until it succeeds, attempts run out, or ctx is done.
func PublishWithRetry(ctx context.Context, pub Publisher, p RetryPolicy, msgs ...Message) error {
	b := p.newBackOff()
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = pub.Publish(ctx, msgs...); err == nil || errors.Is(err, ErrClosed) {
			return err
		}
		if attempt < maxAttempts && !wait(ctx, b.NextBackOff()) {
			return ctx.Err()
		}
	}
	return err
}
