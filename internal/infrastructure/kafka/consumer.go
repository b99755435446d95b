package kafka

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/metrics"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/kafka/consumer"
	"github.com/segmentio/kafka-go"
)

// EventConsumer reads lifecycle events with manual commits.
type EventConsumer struct {
	*consumer.Consumer
}

func NewEventConsumer(consumer *consumer.Consumer) *EventConsumer {
	return &EventConsumer{consumer}
}

func (ec *EventConsumer) ReadEvent(ctx context.Context) (kafka.Message, error) {
	msg, err := ec.Reader.FetchMessage(ctx)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("EventConsumer - ReadEvent - ec.Reader.FetchMessage: %w", err)
	}

	if lag := msg.HighWaterMark - msg.Offset - 1; lag >= 0 {
		metrics.ConsumerLag.WithLabelValues(msg.Topic).Set(float64(lag))
	}

	return msg, nil
}

func (ec *EventConsumer) CommitEvent(ctx context.Context, event kafka.Message) error {
	err := ec.Reader.CommitMessages(ctx, event)
	if err != nil {
		return fmt.Errorf("EventConsumer - CommitEvent - ec.Reader.CommitMessages: %w", err)
	}

	return nil
}

func (ec *EventConsumer) Close() error {
	err := ec.Consumer.Close()
	if err != nil {
		return fmt.Errorf("EventConsumer - Close: %w", err)
	}

	return nil
}

// EventType reads the event type header set by EventProducer.
func EventType(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == HeaderEventType {
			return string(h.Value)
		}
	}

	return ""
}
