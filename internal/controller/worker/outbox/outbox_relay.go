package outbox

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/metrics"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/usecase"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
)

// OutboxRelay ships committed lifecycle events to the event bus. Delivery is
// at-least-once: a batch that fails to send goes back to pending.
type OutboxRelay struct {
	uc     usecase.OutboxUseCase
	es     infrastructure.EventsSender
	logger logger.Interface

	pollInterval        time.Duration
	cleanupInterval     time.Duration
	retention           time.Duration
	markFailedInterval  time.Duration
	processBatchTimeout time.Duration
	batchSize           int
	maxRetries          int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	uc usecase.OutboxUseCase,
	es infrastructure.EventsSender,
	l logger.Interface,
	pollInterval time.Duration,
	cleanupInterval time.Duration,
	retention time.Duration,
	markFailedInterval time.Duration,
	processBatchTimeout time.Duration,
	batchSize int,
	maxRetries int,
) *OutboxRelay {
	return &OutboxRelay{
		uc:                  uc,
		es:                  es,
		logger:              l,
		pollInterval:        pollInterval,
		cleanupInterval:     cleanupInterval,
		retention:           retention,
		markFailedInterval:  markFailedInterval,
		processBatchTimeout: processBatchTimeout,
		batchSize:           batchSize,
		maxRetries:          maxRetries,
	}
}

func (r *OutboxRelay) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return fmt.Errorf("OutboxRelay - Start - worker already started")
	}

	r.ctx, r.cancel = context.WithCancel(ctx)

	// send
	r.worker(r.pollInterval, func() {
		batchCtx, batchCancel := context.WithTimeout(r.ctx, r.processBatchTimeout)
		r.processEventsBatch(batchCtx)
		batchCancel()
	})

	// give up on events out of retries
	r.worker(r.markFailedInterval, func() {
		err := r.uc.MarkMaxRetriesAsFailed(r.ctx, r.maxRetries)
		if err != nil {
			r.logger.Error(err, "OutboxRelay - Start - worker - r.uc.MarkMaxRetriesAsFailed")
		}
	})

	// drop old processed and failed rows
	r.worker(r.cleanupInterval, func() {
		err := r.uc.CleanupOutbox(r.ctx, r.retention)
		if err != nil {
			r.logger.Error(err, "OutboxRelay - Start - worker - r.uc.CleanupOutbox")
		}
	})

	return nil
}

func (r *OutboxRelay) processEventsBatch(ctx context.Context) {
	events, err := r.uc.GetPendingEvents(ctx, r.maxRetries, r.batchSize)
	if err != nil {
		r.logger.Error(err, "OutboxRelay - processEventsBatch - r.uc.GetPendingEvents")

		return
	}
	if len(events) == 0 {
		return
	}

	lifecycle, rejected := splitLifecycle(events)

	if len(rejected) > 0 {
		r.logger.Warn("OutboxRelay - processEventsBatch - %d events without a lifecycle name, first=%q", len(rejected), rejected[0].EventType)
		err = r.uc.MarkAsFailedBatch(ctx, rejected)
		if err != nil {
			r.logger.Error(err, "OutboxRelay - processEventsBatch - r.uc.MarkAsFailedBatch")
		} else {
			countRelayed(rejected, "rejected")
		}
	}
	if len(lifecycle) == 0 {
		return
	}

	err = r.uc.MarkAsProcessingBatch(ctx, lifecycle)
	if err != nil {
		r.logger.Error(err, "OutboxRelay - processEventsBatch - r.uc.MarkAsProcessingBatch")

		return
	}

	err = r.es.SendEvents(ctx, lifecycle)
	if err != nil {
		r.logger.Error(err, "OutboxRelay - processEventsBatch - r.es.SendEvents")
		// back to pending with one retry used
		incErr := r.uc.IncrementRetryCountBatch(ctx, lifecycle)
		if incErr != nil {
			r.logger.Error(incErr, "OutboxRelay - processEventsBatch - r.uc.IncrementRetryCountBatch")
		}
		countRelayed(lifecycle, "retried")

		return
	}

	err = r.uc.MarkAsProcessedBatch(ctx, lifecycle)
	if err != nil {
		r.logger.Error(err, "OutboxRelay - processEventsBatch - r.uc.MarkAsProcessedBatch")
	}
	countRelayed(lifecycle, "sent")
}

// splitLifecycle keeps the events that carry a lifecycle name, ordered so
// that each record's events leave in lifecycle order. Consumers key by
// record, so this is the order they observe. The rest can never be sent.
func splitLifecycle(events []*entity.OutboxEvent) (lifecycle, rejected []*entity.OutboxEvent) {
	for _, e := range events {
		if _, ok := e.EventType.LifecycleRank(); ok {
			lifecycle = append(lifecycle, e)
		} else {
			rejected = append(rejected, e)
		}
	}

	// commit time first; events of one record stamped with the same instant
	// (an unviewed record expired right away) fall back to lifecycle rank
	slices.SortStableFunc(lifecycle, func(a, b *entity.OutboxEvent) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		ra, _ := a.EventType.LifecycleRank()
		rb, _ := b.EventType.LifecycleRank()

		return ra - rb
	})

	return lifecycle, rejected
}

func countRelayed(events []*entity.OutboxEvent, result string) {
	for _, e := range events {
		metrics.OutboxRelayedTotal.WithLabelValues(string(e.EventType), result).Inc()
	}
}

func (r *OutboxRelay) worker(interval time.Duration, task func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()
}

func (r *OutboxRelay) Shutdown(ctx context.Context) error {
	if !r.started.Load() {
		return nil
	}

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})

	go func() {
		r.wg.Wait()
		if err := r.es.Close(); err != nil {
			r.logger.Error(err, "OutboxRelay - Shutdown - r.es.Close")
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("OutboxRelay - Shutdown: %w", ctx.Err())
	}
}
