// Package kafka carries the event contracts and the producer/consumer used
// to trigger and report analysis pipeline runs.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/patentlens/patentlens/pkg/errors"
)

const (
	// TopicPaymentConfirmed triggers the pipeline: one event per confirmed
	// payment, keyed by job id.
	TopicPaymentConfirmed = "job.payment.confirmed"

	// TopicAnalysisCompleted and TopicAnalysisFailed report terminal pipeline
	// outcomes for downstream consumers (notifications, billing).
	TopicAnalysisCompleted = "job.analysis.completed"
	TopicAnalysisFailed    = "job.analysis.failed"

	// TopicDeadLetter receives events the worker could not process after
	// exhausting its retries.
	TopicDeadLetter = "job.dead_letter"
)

// EventEnvelope standardizes the messages on every topic.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// PaymentConfirmedPayload triggers one pipeline run.
type PaymentConfirmedPayload struct {
	JobID       string    `json:"job_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// AnalysisCompletedPayload reports a successful run.
type AnalysisCompletedPayload struct {
	JobID       string    `json:"job_id"`
	Analyses    int       `json:"analyses"`
	CompletedAt time.Time `json:"completed_at"`
}

// AnalysisFailedPayload reports a terminal failure with its reason.
type AnalysisFailedPayload struct {
	JobID    string    `json:"job_id"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// NewEventEnvelope wraps a payload for publishing.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope's payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return apperrors.New(apperrors.ErrCodeBadRequest, "event has no payload")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "decode event payload")
	}
	return nil
}
