package usecase

import (
	"context"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/google/uuid"
)

type (
	MediaUseCase interface {
		CreateImageMessage(ctx context.Context, senderID, receiverID string, upload dto.Upload) (*entity.MediaRecord, error)
		MarkViewed(ctx context.Context, id uuid.UUID, actor entity.Actor) (dto.ViewWindow, error)
		ForceExpire(ctx context.Context, id uuid.UUID, actor entity.Actor) error
		MarkRead(ctx context.Context, id uuid.UUID, actor entity.Actor) error
		GetForClient(ctx context.Context, id uuid.UUID, actor entity.Actor) (*dto.ClientMedia, error)
		SerializeForClient(ctx context.Context, rec *entity.MediaRecord, viewerID string) (*dto.ClientMedia, error)
		// PrecheckUpload rejects an upload from its declared type and size alone.
		PrecheckUpload(declaredType string, size int64) error
	}

	ExpiryUseCase interface {
		FindDueForExpiry(ctx context.Context, limit int, skip uuid.UUIDs) ([]*entity.MediaRecord, error)
		// Expire force-expires rec on behalf of the sweep. applied is false when
		// the record was already expired by someone else.
		Expire(ctx context.Context, rec *entity.MediaRecord) (applied bool, err error)
		PurgePayload(ctx context.Context, key string) error
	}

	OutboxUseCase interface {
		GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.OutboxEvent, error)
		MarkAsProcessingBatch(ctx context.Context, events []*entity.OutboxEvent) error
		MarkAsProcessedBatch(ctx context.Context, events []*entity.OutboxEvent) error
		IncrementRetryCountBatch(ctx context.Context, events []*entity.OutboxEvent) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		// MarkAsFailedBatch retires events the relay can never deliver.
		MarkAsFailedBatch(ctx context.Context, events []*entity.OutboxEvent) error
		CleanupOutbox(ctx context.Context, retention time.Duration) error
	}
)
