// Path: internal/bus/kafka.go
package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig holds the connection settings for the Kafka bus.
type KafkaConfig struct {
	Brokers  []string
	ClientID string
}

// KafkaBus is a Bus backed by Kafka topics. Messages are partitioned by key,
// which gives per-key ordering within a consumer group.
type KafkaBus struct {
	cfg    KafkaConfig
	writer *kafka.Writer
	retry  RetryPolicy
	log    *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewKafkaBus creates a Kafka-backed bus. Connections are opened lazily.
func NewKafkaBus(cfg KafkaConfig, retry RetryPolicy, log *zap.Logger) (*KafkaBus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka bus needs at least one broker")
	}
	return &KafkaBus{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			Transport:              &kafka.Transport{ClientID: cfg.ClientID},
		},
		retry: retry,
		log:   log,
	}, nil
}

// Publish implements Publisher.
func (b *KafkaBus) Publish(ctx context.Context, msgs ...Message) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrClosed
	}

	out := make([]kafka.Message, 0, len(msgs))
	for _, m := range msgs {
		headers := make([]kafka.Header, 0, len(m.Headers))
		for k, v := range m.Headers {
			headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
		}
		out = append(out, kafka.Message{
			Topic:   m.Topic,
			Key:     []byte(m.Key),
			Value:   m.Value,
			Headers: headers,
		})
	}
	if err := b.writer.WriteMessages(ctx, out...); err != nil {
		return fmt.Errorf("failed to write to kafka: %w", err)
	}
	return nil
}

// Subscribe implements Subscriber.
func (b *KafkaBus) Subscribe(ctx context.Context, topic, group string, h Handler) error {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		GroupID:     group,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
		Dialer: &kafka.Dialer{
			ClientID:  b.cfg.ClientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		r.Close()
		return ErrClosed
	}
	b.mu.Unlock()
	defer r.Close()

	log := b.log.With(zap.String("topic", topic), zap.String("group", group))
	log.Info("Kafka consumer started")
	fetchBackOff := b.retry.newBackOff()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				log.Info("Kafka consumer stopped")
				return nil
			}
			log.Warn("Failed to fetch message", zap.Error(err))
			if !wait(ctx, fetchBackOff.NextBackOff()) {
				return nil
			}
			continue
		}
		fetchBackOff.Reset()

		msg := Message{
			Topic:   m.Topic,
			Key:     string(m.Key),
			Value:   m.Value,
			Headers: make(map[string]string, len(m.Headers)),
		}
		for _, hd := range m.Headers {
			msg.Headers[hd.Key] = string(hd.Value)
		}

		if err := deliver(ctx, b.retry, b, log, msg, h); err != nil {
			// Uncommitted; the group redelivers it after a restart.
			return nil
		}
		if err := r.CommitMessages(context.WithoutCancel(ctx), m); err != nil {
			log.Error("Failed to commit offset", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

// Close implements Bus.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return b.writer.Close()
}
