package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-orders/internal/common/mq"
	"restaurant-orders/internal/domain"
)

// EventPublisher receives order events after the change is committed.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, e domain.OrderEvent) error
}

type NopPublisher struct{}

func (NopPublisher) PublishOrderEvent(context.Context, domain.OrderEvent) error { return nil }

type messagePublisher interface {
	Publish(ctx context.Context, m mq.Message) error
}

// RabbitPublisher sends the full event to the orders topic exchange and a
// short notification to the notifications fanout.
type RabbitPublisher struct {
	client messagePublisher
	source string
}

func NewRabbitPublisher(client *mq.Client, source string) *RabbitPublisher {
	return &RabbitPublisher{client: client, source: source}
}

func (p *RabbitPublisher) PublishOrderEvent(ctx context.Context, e domain.OrderEvent) error {
	msgs, err := eventMessages(e, p.source)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if err := p.client.Publish(ctx, m); err != nil {
			return fmt.Errorf("publish to %s: %w", m.Exchange, err)
		}
	}
	return nil
}

func eventMessages(e domain.OrderEvent, source string) ([]mq.Message, error) {
	eventBody, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal order event: %w", err)
	}
	noteBody, err := json.Marshal(e.Notification())
	if err != nil {
		return nil, fmt.Errorf("marshal notification: %w", err)
	}
	headers := amqp.Table{"x-source": source, "x-event-type": string(e.Type)}
	return []mq.Message{
		{
			Exchange:      mq.OrdersExchange,
			RoutingKey:    e.RoutingKey(),
			Body:          eventBody,
			CorrelationID: e.OrderNumber,
			MessageID:     uuid.NewString(),
			Headers:       headers,
		},
		{
			Exchange:      mq.NotificationsExchange,
			Body:          noteBody,
			CorrelationID: e.OrderNumber,
			MessageID:     uuid.NewString(),
			Headers:       headers,
		},
	}, nil
}
