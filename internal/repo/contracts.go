package repo

import (
	"context"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/google/uuid"
)

type (
	PayloadRepo interface {
		UploadBytes(ctx context.Context, key string, data []byte, contentType string) error
		DownloadBytes(ctx context.Context, key string) ([]byte, error)
		Delete(ctx context.Context, key string) error
	}

	MediaRecordRepo interface {
		Create(ctx context.Context, rec *entity.MediaRecord) error
		GetByID(ctx context.Context, id uuid.UUID) (*entity.MediaRecord, error)
		// FindDueForExpiry lists unexpired records past their deadline, oldest
		// deadline first, leaving out the ids in skip.
		FindDueForExpiry(ctx context.Context, now time.Time, limit int, skip uuid.UUIDs) ([]*entity.MediaRecord, error)
		// Transition writes rec only if the stored state still equals from.
		// applied is false when another writer got there first.
		Transition(ctx context.Context, rec *entity.MediaRecord, from entity.State) (applied bool, err error)
		MarkRead(ctx context.Context, id uuid.UUID) error
	}

	OutboxRepo interface {
		Create(ctx context.Context, event *entity.OutboxEvent) error
		GetPendingEvents(ctx context.Context, maxRetries, limit int) ([]*entity.OutboxEvent, error)
		MarkAsProcessingBatch(ctx context.Context, IDs uuid.UUIDs) error
		MarkAsProcessedBatch(ctx context.Context, IDs uuid.UUIDs) error
		IncrementRetryCountBatch(ctx context.Context, IDs uuid.UUIDs) error
		MarkMaxRetriesAsFailed(ctx context.Context, maxRetries int) error
		MarkAsFailedBatch(ctx context.Context, IDs uuid.UUIDs) error
		DeleteOldProcessedAndFailed(ctx context.Context, olderThan time.Time) (int64, error)
	}

	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)
