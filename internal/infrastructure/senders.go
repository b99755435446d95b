package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
)

// Senders sends every batch to the primary sender and then to the mirrors.
// Only a primary failure fails the batch; the outbox retries it as a whole.
type Senders struct {
	primary EventsSender
	mirrors []EventsSender
	onError func(err error)
}

func NewSenders(primary EventsSender, onMirrorError func(err error), mirrors ...EventsSender) *Senders {
	if onMirrorError == nil {
		onMirrorError = func(error) {}
	}

	return &Senders{
		primary: primary,
		mirrors: mirrors,
		onError: onMirrorError,
	}
}

func (s *Senders) SendEvents(ctx context.Context, events []*entity.OutboxEvent) error {
	if err := s.primary.SendEvents(ctx, events); err != nil {
		return fmt.Errorf("Senders - SendEvents - s.primary.SendEvents: %w", err)
	}

	for _, m := range s.mirrors {
		if err := m.SendEvents(ctx, events); err != nil {
			s.onError(fmt.Errorf("Senders - SendEvents - mirror: %w", err))
		}
	}

	return nil
}

func (s *Senders) Close() error {
	errList := []error{s.primary.Close()}
	for _, m := range s.mirrors {
		errList = append(errList, m.Close())
	}

	return errors.Join(errList...)
}
