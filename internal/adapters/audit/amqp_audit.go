// Package audit emits dispatch facts to subscribers. Reporting aggregation
// and audit retention live outside the engine; this side only publishes.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"dispatch-engine/internal/ports"
)

const exchangeName = "dispatch_topic"

// AMQPRecorder publishes audit entries to a topic exchange, routing key
// "dispatch.<action suffix>". Publishing is fire-and-forget: failures are
// logged and dropped so they can never fail the dispatch operation that
// produced the entry.
type AMQPRecorder struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPRecorder(amqpURL string) (*AMQPRecorder, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("audit recorder: dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("audit recorder: open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("audit recorder: declare exchange %s: %w", exchangeName, err)
	}

	return &AMQPRecorder{conn: conn, channel: ch}, nil
}

type auditMessage struct {
	Action    string         `json:"action"`
	ActorID   string         `json:"actor_id"`
	EntityID  string         `json:"entity_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func (r *AMQPRecorder) Record(ctx context.Context, entry ports.AuditEntry) {
	body, err := json.Marshal(auditMessage{
		Action:    entry.Action,
		ActorID:   entry.ActorID,
		EntityID:  entry.EntityID,
		Metadata:  entry.Metadata,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("audit publish failed: action=%s err=%v", entry.Action, err)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = r.channel.PublishWithContext(
		pubCtx,
		exchangeName,
		entry.Action, // e.g. dispatch.created
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			DeliveryMode:  amqp.Persistent,
			ContentType:   "application/json",
			Body:          body,
			CorrelationId: entry.EntityID,
			Timestamp:     time.Now().UTC(),
		},
	)
	if err != nil {
		log.Printf("audit publish failed: action=%s entity=%s err=%v", entry.Action, entry.EntityID, err)
	}
}

func (r *AMQPRecorder) Close() error {
	if err := r.channel.Close(); err != nil {
		_ = r.conn.Close()
		return fmt.Errorf("audit recorder: close channel: %w", err)
	}
	return r.conn.Close()
}
