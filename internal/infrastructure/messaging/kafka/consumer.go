package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
)

// Handler processes one decoded event.  A non-nil error triggers a bounded
// retry; after the retries are exhausted the event moves to the dead-letter
// topic and the offset is committed.
type Handler func(ctx context.Context, env *EventEnvelope) error

// readerInterface abstracts kafka.Reader for tests.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic within the worker consumer group.
type Consumer struct {
	reader      readerInterface
	deadLetter  writerInterface // nil disables dead-lettering
	dlTopic     string
	maxAttempts int
	backoff     time.Duration
	logger      logging.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, log logging.Logger) *Consumer {
	startOffset := kafka.FirstOffset
	if cfg.AutoOffsetReset == "latest" {
		startOffset = kafka.LastOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          topic,
		StartOffset:    startOffset,
		SessionTimeout: cfg.SessionTimeout,
		MinBytes:       1,
		MaxBytes:       10e6,
	})

	c := &Consumer{
		reader:      r,
		dlTopic:     cfg.DeadLetterTopic,
		maxAttempts: 3,
		backoff:     time.Second,
		logger:      log,
	}
	if cfg.DeadLetterTopic != "" {
		c.deadLetter = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			RequiredAcks: kafka.RequireAll,
		}
	}
	return c
}

// NewConsumerWithReader wires explicit reader/writer implementations, for
// tests.
func NewConsumerWithReader(r readerInterface, dl writerInterface, dlTopic string, log logging.Logger) *Consumer {
	return &Consumer{
		reader:      r,
		deadLetter:  dl,
		dlTopic:     dlTopic,
		maxAttempts: 3,
		backoff:     time.Millisecond,
		logger:      log,
	}
}

// Run consumes until ctx is canceled.  Offsets are committed only after the
// event is handled or dead-lettered, so a crash re-delivers in-flight events
// and the pipeline's own idempotency absorbs the duplicate.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		var env EventEnvelope
		if err := json.Unmarshal(msg.Value, &env); err != nil {
			c.logger.Error("malformed event, dead-lettering",
				logging.String("topic", msg.Topic), logging.Err(err))
			c.sendDeadLetter(ctx, msg, "malformed envelope: "+err.Error())
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return err
			}
			continue
		}

		if err := c.handleWithRetry(ctx, &env, handler); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("event handling exhausted retries, dead-lettering",
				logging.String("event_id", env.EventID),
				logging.String("event_type", env.EventType),
				logging.Err(err))
			c.sendDeadLetter(ctx, msg, err.Error())
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return err
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, env *EventEnvelope, handler Handler) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = handler(ctx, env); err == nil {
			return nil
		}
		if attempt == c.maxAttempts {
			break
		}
		c.logger.Warn("event handling failed, retrying",
			logging.String("event_id", env.EventID),
			logging.Int("attempt", attempt),
			logging.Err(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (c *Consumer) sendDeadLetter(ctx context.Context, msg kafka.Message, reason string) {
	if c.deadLetter == nil {
		return
	}
	dl := kafka.Message{
		Topic: c.dlTopic,
		Key:   msg.Key,
		Value: msg.Value,
		Headers: []kafka.Header{
			{Key: "dead-letter-reason", Value: []byte(reason)},
			{Key: "original-topic", Value: []byte(msg.Topic)},
		},
	}
	if err := c.deadLetter.WriteMessages(ctx, dl); err != nil {
		c.logger.Error("dead-letter publish failed", logging.Err(err))
	}
}

// Close closes the reader and, when present, the dead-letter writer.
func (c *Consumer) Close() error {
	err := c.reader.Close()
	if c.deadLetter != nil {
		if cerr := c.deadLetter.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
