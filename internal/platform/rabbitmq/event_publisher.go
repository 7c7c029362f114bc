package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/limglenaldin/ai-insurance-agent/internal/model"
)

// EventPublisher sends persistent ingest events: one per ingested document and
// one when the run completes.
type EventPublisher struct {
	conn      *amqp.Connection
	queueName string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewEventPublisher(conn *amqp.Connection, queueName string) *EventPublisher {
	return &EventPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event model.DocumentIngestedEvent) error {
	return p.publish(ctx, model.EventDocumentIngested, event.RunID+":"+event.FileName, event)
}

// PublishRunCompleted marks the end of a successful run so the catalog can drop
// documents that are no longer part of the corpus.
func (p *EventPublisher) PublishRunCompleted(ctx context.Context, event model.IngestRunCompletedEvent) error {
	return p.publish(ctx, model.EventRunCompleted, event.RunID+":completed", event)
}

func (p *EventPublisher) publish(ctx context.Context, msgType, messageID string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event failed: %w", msgType, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return fmt.Errorf("open rabbitmq channel failed: %w", err)
		}
		if _, err := DeclareQueue(ch, p.queueName); err != nil {
			_ = ch.Close()
			return fmt.Errorf("declare queue failed: %w", err)
		}
		p.ch = ch
	}

	if err := p.ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         msgType,
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
		},
	); err != nil {
		return fmt.Errorf("publish %s event failed: %w", msgType, err)
	}
	return nil
}

func (p *EventPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
}
