package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/lifecycle"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/metrics"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
	"github.com/google/uuid"
)

// A lost compare-and-set is retried on a fresh copy. The second attempt is
// always a no-op or the one remaining legal step, so two is enough in
// practice; the bound only guards against a misbehaving store.
const _maxTransitionAttempts = 3

var errLostRace = errors.New("record changed concurrently")

type step func(rec *entity.MediaRecord) (lifecycle.Outcome, error)

// MarkViewed starts the view window, or returns the existing one.
func (uc *UseCase) MarkViewed(ctx context.Context, id uuid.UUID, actor entity.Actor) (dto.ViewWindow, error) {
	out, err := uc.transition(ctx, id, nil, entity.TriggerClient, func(rec *entity.MediaRecord) (lifecycle.Outcome, error) {
		return uc.machine.MarkViewed(rec, actor)
	})
	if err != nil {
		return dto.ViewWindow{}, fmt.Errorf("MediaUseCase - MarkViewed - uc.transition: %w", err)
	}

	rec := out.Record
	if rec.ViewedAt == nil || rec.ExpiresAt == nil {
		return dto.ViewWindow{}, fmt.Errorf("MediaUseCase - MarkViewed - record %s has no window: %w", id, errs.ErrIllegalTransition)
	}

	return dto.ViewWindow{ViewedAt: *rec.ViewedAt, ExpiresAt: *rec.ExpiresAt}, nil
}

// ForceExpire destroys the record's payload on request of a participant or
// administrator. Expiring an expired record succeeds.
func (uc *UseCase) ForceExpire(ctx context.Context, id uuid.UUID, actor entity.Actor) error {
	_, err := uc.transition(ctx, id, nil, entity.TriggerClient, func(rec *entity.MediaRecord) (lifecycle.Outcome, error) {
		return uc.machine.ForceExpire(rec, actor, entity.TriggerClient)
	})
	if err != nil {
		return fmt.Errorf("MediaUseCase - ForceExpire - uc.transition: %w", err)
	}

	return nil
}

// Expire is the sweep's entry point. rec may be stale; the store decides.
func (uc *UseCase) Expire(ctx context.Context, rec *entity.MediaRecord) (bool, error) {
	out, err := uc.transition(ctx, rec.ID, rec, entity.TriggerSweep, func(rec *entity.MediaRecord) (lifecycle.Outcome, error) {
		return uc.machine.ForceExpire(rec, entity.Actor{}, entity.TriggerSweep)
	})
	if err != nil {
		return false, fmt.Errorf("MediaUseCase - Expire - uc.transition: %w", err)
	}

	return out.Applied, nil
}

// transition runs one state machine step against the stored record, persists
// it with a compare-and-set on the prior state and publishes after commit.
// Only the writer whose update applied publishes; everybody else gets the
// no-op outcome of the fresh record.
func (uc *UseCase) transition(
	ctx context.Context,
	id uuid.UUID,
	rec *entity.MediaRecord,
	trigger entity.Trigger,
	fn step,
) (lifecycle.Outcome, error) {
	unlock := uc.locks.lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		if rec == nil {
			var err error
			rec, err = uc.records.GetByID(ctx, id)
			if err != nil {
				return lifecycle.Outcome{}, fmt.Errorf("MediaUseCase - transition - uc.records.GetByID: %w", err)
			}
		}

		out, err := fn(rec)
		if err != nil {
			return lifecycle.Outcome{}, err
		}
		if !out.Applied {
			return out, nil
		}

		err = uc.commit(ctx, out, trigger)
		if err == nil {
			uc.afterCommit(ctx, out, trigger)

			return out, nil
		}

		if !errors.Is(err, errLostRace) {
			return lifecycle.Outcome{}, err
		}

		metrics.TransitionConflictsTotal.WithLabelValues(string(out.Record.State)).Inc()

		if attempt >= _maxTransitionAttempts {
			return lifecycle.Outcome{}, fmt.Errorf("MediaUseCase - transition - %d attempts: %w", attempt, err)
		}

		rec = nil
	}
}

func (uc *UseCase) commit(ctx context.Context, out lifecycle.Outcome, trigger entity.Trigger) error {
	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		applied, err := uc.records.Transition(ctx, out.Record, out.From)
		if err != nil {
			return fmt.Errorf("MediaUseCase - commit - uc.records.Transition: %w", err)
		}
		if !applied {
			return errLostRace
		}

		event, err := uc.newOutboxEvent(eventName(out.Record.State), out.Record, trigger, out.PurgedKey)
		if err != nil {
			return fmt.Errorf("MediaUseCase - commit - uc.newOutboxEvent: %w", err)
		}
		if err := uc.outbox.Create(ctx, event); err != nil {
			return fmt.Errorf("MediaUseCase - commit - uc.outbox.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("MediaUseCase - commit - uc.transactor.WithinTransaction: %w", err)
	}

	return nil
}

func (uc *UseCase) afterCommit(ctx context.Context, out lifecycle.Outcome, trigger entity.Trigger) {
	rec := out.Record

	uc.evict(rec.ID)
	metrics.TransitionsTotal.WithLabelValues(string(rec.State), string(trigger)).Inc()

	switch rec.State {
	case entity.StateViewing:
		uc.fanOut.Publish(ctx, entity.ImageViewed{
			ConversationKey: rec.ConversationKey,
			RecordID:        rec.ID,
			ViewedAt:        *rec.ViewedAt,
			ExpiresAt:       *rec.ExpiresAt,
		})
	case entity.StateExpired:
		if trigger == entity.TriggerSweep {
			metrics.SweepExpiredTotal.Inc()
		}

		uc.fanOut.Publish(ctx, entity.ImageExpired{
			ConversationKey: rec.ConversationKey,
			RecordID:        rec.ID,
			Trigger:         trigger,
			ExpiredAt:       uc.machine.Now(),
		})

		// the purge consumer retries this from the outbox event
		if out.PurgedKey != "" {
			err := uc.payloads.Delete(context.WithoutCancel(ctx), out.PurgedKey)
			if err != nil {
				uc.logger.Warn("MediaUseCase - afterCommit - uc.payloads.Delete: key=%s, error=%v", out.PurgedKey, err)
			}
		}
	}
}

func eventName(state entity.State) entity.EventName {
	switch state {
	case entity.StateViewing:
		return entity.EventImageViewed
	case entity.StateExpired:
		return entity.EventImageExpired
	default:
		return entity.EventMessageNew
	}
}
