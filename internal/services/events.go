package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/openanchor/gw-anchor-dispatcher/internal/logger"
	"github.com/openanchor/gw-anchor-dispatcher/internal/models"
)

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// StatusChangeEvent is published after every successful action.
type StatusChangeEvent struct {
	ID             string                      `json:"id"`
	TransactionID  string                      `json:"transaction_id"`
	Sep            string                      `json:"sep"`
	Action         models.ActionMethod         `json:"action"`
	PreviousStatus models.SepTransactionStatus `json:"previous_status"`
	Status         models.SepTransactionStatus `json:"status"`
	OccurredAt     int64                       `json:"occurred_at"`
}

// EventPublisher publishes transaction status changes to Kafka, keyed by
// transaction id. Publishing is best effort: failures are logged and never
// surfaced to the caller, so the save stays the final state-affecting side
// effect of an action.
type EventPublisher struct {
	writer KafkaWriter
}

// NewEventPublisher creates a publisher over the given writer. A nil writer
// disables publishing.
func NewEventPublisher(writer KafkaWriter) *EventPublisher {
	return &EventPublisher{writer: writer}
}

// PublishStatusChange emits a StatusChangeEvent for the transaction. Safe
// to call on a nil publisher.
func (p *EventPublisher) PublishStatusChange(ctx context.Context, txn *models.SepTransaction, action models.ActionMethod, previous models.SepTransactionStatus) {
	if p == nil || p.writer == nil {
		logger.Log.Warnw("Kafka writer not configured, skipping publishing", "transaction_id", txn.ID)
		return
	}

	event := StatusChangeEvent{
		ID:             uuid.NewString(),
		TransactionID:  txn.ID,
		Sep:            txn.Protocol,
		Action:         action,
		PreviousStatus: previous,
		Status:         txn.Status,
		OccurredAt:     time.Now().Unix(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Log.Errorw("Failed to marshal status change event", "transaction_id", txn.ID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(txn.ID),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Log.Errorw("Failed to publish status change event", "transaction_id", txn.ID, "error", err)
	} else {
		logger.Log.Infow("Status change event published", "transaction_id", txn.ID, "action", action, "status", txn.Status)
	}
}
