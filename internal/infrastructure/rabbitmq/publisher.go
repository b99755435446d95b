package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher mirrors outbox events to a topic exchange. The routing key is
// the event type, so consumers can bind to e.g. "image:*".
type EventPublisher struct {
	*rabbitmq.RabbitMQ
	appID string

	// one publisher at a time per confirm-mode channel
	mu sync.Mutex
}

func NewEventPublisher(r *rabbitmq.RabbitMQ, appID string) *EventPublisher {
	return &EventPublisher{RabbitMQ: r, appID: appID}
}

func (ep *EventPublisher) SendEvents(ctx context.Context, events []*entity.OutboxEvent) error {
	if len(events) == 0 {
		return nil
	}

	ep.mu.Lock()
	defer ep.mu.Unlock()

	confirms := make([]*amqp.DeferredConfirmation, 0, len(events))
	for _, event := range events {
		dc, err := ep.Channel.PublishWithDeferredConfirmWithContext(ctx, ep.Exchange, string(event.EventType), false, false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    event.ID.String(),
				Type:         string(event.EventType),
				Timestamp:    event.CreatedAt,
				AppId:        ep.appID,
				Headers: amqp.Table{
					"aggregate_id": event.AggregateID.String(),
				},
				Body: event.Payload,
			})
		if err != nil {
			return fmt.Errorf("EventPublisher - SendEvents - ep.Channel.PublishWithDeferredConfirmWithContext: %w", err)
		}
		confirms = append(confirms, dc)
	}

	for i, dc := range confirms {
		ok, err := dc.WaitContext(ctx)
		if err != nil {
			return fmt.Errorf("EventPublisher - SendEvents - dc.WaitContext: %w", err)
		}
		if !ok {
			return fmt.Errorf("EventPublisher - SendEvents - event %s nacked by broker", events[i].ID)
		}
	}

	return nil
}

func (ep *EventPublisher) Close() error {
	err := ep.RabbitMQ.Close()
	if err != nil {
		return fmt.Errorf("EventPublisher - Close: %w", err)
	}

	return nil
}
