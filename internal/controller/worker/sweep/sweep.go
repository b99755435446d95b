package sweep

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/metrics"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/usecase"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/google/uuid"
)

// Sweeper periodically expires every record whose deadline has passed.
type Sweeper struct {
	uc     usecase.ExpiryUseCase
	logger logger.Interface

	interval     time.Duration
	batchTimeout time.Duration
	batchSize    int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	uc usecase.ExpiryUseCase,
	l logger.Interface,
	interval time.Duration,
	batchTimeout time.Duration,
	batchSize int,
) *Sweeper {
	return &Sweeper{
		uc:           uc,
		logger:       l,
		interval:     interval,
		batchTimeout: batchTimeout,
		batchSize:    batchSize,
	}
}

func (s *Sweeper) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("Sweeper - Start - worker already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(s.ctx)
			}
		}
	}()

	return nil
}

// Sweep drains everything due right now, one batch at a time. It returns the
// number of records this run expired. Records that could not be expired are
// left out of the rest of the run and retried on the next tick.
func (s *Sweeper) Sweep(ctx context.Context) int {
	var (
		total int
		skip  uuid.UUIDs
	)

	for ctx.Err() == nil {
		expired, found, left := s.sweepBatch(ctx, skip)
		total += expired
		skip = append(skip, left...)

		if found < s.batchSize {
			break
		}
	}

	if total > 0 {
		s.logger.Info("sweep expired %d records", total)
	}

	return total
}

// sweepBatch returns the ids it could not expire in left. Every fetched record
// ends up expired or in left, so the next batch of the run always moves on.
func (s *Sweeper) sweepBatch(ctx context.Context, skip uuid.UUIDs) (expired, found int, left uuid.UUIDs) {
	batchCtx, cancel := context.WithTimeout(ctx, s.batchTimeout)
	defer cancel()

	records, err := s.uc.FindDueForExpiry(batchCtx, s.batchSize, skip)
	if err != nil {
		s.logger.Error(err, "Sweeper - sweepBatch - s.uc.FindDueForExpiry")

		return 0, 0, nil
	}

	for i, rec := range records {
		if batchCtx.Err() != nil {
			for _, rest := range records[i:] {
				left = append(left, rest.ID)
			}

			break
		}

		applied, err := s.uc.Expire(batchCtx, rec)
		if err != nil {
			metrics.SweepFailuresTotal.Inc()
			s.logger.Error(err, "Sweeper - sweepBatch - s.uc.Expire")
			left = append(left, rec.ID)

			continue
		}
		if applied {
			expired++
		}
	}

	return expired, len(records), left
}

func (s *Sweeper) Shutdown(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Sweeper - Shutdown: %w", ctx.Err())
	}
}
