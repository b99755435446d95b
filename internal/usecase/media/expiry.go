package media

import (
	"context"
	"fmt"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/metrics"
	"github.com/google/uuid"
)

func (uc *UseCase) FindDueForExpiry(ctx context.Context, limit int, skip uuid.UUIDs) ([]*entity.MediaRecord, error) {
	records, err := uc.records.FindDueForExpiry(ctx, uc.machine.Now(), limit, skip)
	if err != nil {
		return nil, fmt.Errorf("MediaUseCase - FindDueForExpiry - uc.records.FindDueForExpiry: %w", err)
	}

	metrics.SweepBatchSize.Observe(float64(len(records)))

	return records, nil
}

// PurgePayload deletes an expired record's blob. Deleting a missing blob succeeds.
func (uc *UseCase) PurgePayload(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	err := uc.payloads.Delete(ctx, key)
	if err != nil {
		return fmt.Errorf("MediaUseCase - PurgePayload - uc.payloads.Delete: %w", err)
	}

	return nil
}
