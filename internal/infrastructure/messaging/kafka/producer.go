package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/patentlens/patentlens/internal/config"
	"github.com/patentlens/patentlens/internal/infrastructure/monitoring/logging"
	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

// writerInterface abstracts kafka.Writer for tests.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes pipeline lifecycle events.  Messages are keyed by job
// id so per-job ordering is preserved within a topic.
type Producer struct {
	writer writerInterface
	source string
	logger logging.Logger
}

func NewProducer(cfg config.KafkaConfig, source string, log logging.Logger) *Producer {
	retries := cfg.ProducerRetries
	if retries < 1 {
		retries = 3
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  retries,
		WriteTimeout: 10 * time.Second,
	}
	return &Producer{writer: w, source: source, logger: log}
}

// NewProducerWithWriter wraps an existing writer, for tests.
func NewProducerWithWriter(w writerInterface, source string, log logging.Logger) *Producer {
	return &Producer{writer: w, source: source, logger: log}
}

// PublishPaymentConfirmed emits the pipeline trigger for a freshly paid job.
func (p *Producer) PublishPaymentConfirmed(ctx context.Context, jobID string) error {
	return p.publish(ctx, TopicPaymentConfirmed, jobID, PaymentConfirmedPayload{
		JobID:       jobID,
		ConfirmedAt: time.Now().UTC(),
	})
}

// PublishAnalysisCompleted reports a successful pipeline run.
func (p *Producer) PublishAnalysisCompleted(ctx context.Context, jobID string, analyses int) error {
	return p.publish(ctx, TopicAnalysisCompleted, jobID, AnalysisCompletedPayload{
		JobID:       jobID,
		Analyses:    analyses,
		CompletedAt: time.Now().UTC(),
	})
}

// PublishAnalysisFailed reports a terminal pipeline failure.
func (p *Producer) PublishAnalysisFailed(ctx context.Context, jobID, reason string) error {
	return p.publish(ctx, TopicAnalysisFailed, jobID, AnalysisFailedPayload{
		JobID:    jobID,
		Reason:   reason,
		FailedAt: time.Now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload interface{}) error {
	env, err := NewEventEnvelope(topic, p.source, payload)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal event envelope")
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeExternalService, "publish event")
	}
	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_id", env.EventID),
		logging.String("key", key))
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
