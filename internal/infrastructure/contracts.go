package infrastructure

import (
	"context"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
)

type (
	EventsSender interface {
		SendEvents(ctx context.Context, events []*entity.OutboxEvent) error
		Close() error
	}

	// FanOut delivers a committed lifecycle event to the connected
	// participants of its conversation.
	FanOut interface {
		Publish(ctx context.Context, ev entity.RoomEvent)
	}
)
