package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/google/uuid"
)

type fakeOutbox struct {
	pending    []*entity.OutboxEvent
	processing int
	processed  int
	retried    int
	failed     []*entity.OutboxEvent
	retention  time.Duration
}

func (f *fakeOutbox) GetPendingEvents(_ context.Context, _, limit int) ([]*entity.OutboxEvent, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}

	return f.pending, nil
}

func (f *fakeOutbox) MarkAsProcessingBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.processing += len(events)

	return nil
}

func (f *fakeOutbox) MarkAsProcessedBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.processed += len(events)

	return nil
}

func (f *fakeOutbox) IncrementRetryCountBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.retried += len(events)

	return nil
}

func (f *fakeOutbox) MarkMaxRetriesAsFailed(context.Context, int) error { return nil }

func (f *fakeOutbox) MarkAsFailedBatch(_ context.Context, events []*entity.OutboxEvent) error {
	f.failed = append(f.failed, events...)

	return nil
}

func (f *fakeOutbox) CleanupOutbox(_ context.Context, retention time.Duration) error {
	f.retention = retention

	return nil
}

type fakeSender struct {
	err    error
	sent   int
	order  []entity.EventName
	closed bool
}

func (s *fakeSender) SendEvents(_ context.Context, events []*entity.OutboxEvent) error {
	if s.err != nil {
		return s.err
	}
	s.sent += len(events)
	for _, e := range events {
		s.order = append(s.order, e.EventType)
	}

	return nil
}

func (s *fakeSender) Close() error {
	s.closed = true

	return nil
}

func pendingEvents(n int) []*entity.OutboxEvent {
	out := make([]*entity.OutboxEvent, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &entity.OutboxEvent{ID: uuid.New(), EventType: entity.EventImageExpired, Status: entity.Pending})
	}

	return out
}

func newRelay(uc *fakeOutbox, es *fakeSender) *OutboxRelay {
	return New(uc, es, logger.NewNop(), time.Hour, time.Hour, 24*time.Hour, time.Hour, time.Second, 10, 3)
}

func TestProcessEventsBatch_Sent(t *testing.T) {
	uc := &fakeOutbox{pending: pendingEvents(3)}
	es := &fakeSender{}

	newRelay(uc, es).processEventsBatch(context.Background())

	if es.sent != 3 || uc.processing != 3 || uc.processed != 3 || uc.retried != 0 {
		t.Errorf("sent=%d processing=%d processed=%d retried=%d", es.sent, uc.processing, uc.processed, uc.retried)
	}
}

func TestProcessEventsBatch_SendFailureRetries(t *testing.T) {
	uc := &fakeOutbox{pending: pendingEvents(2)}
	es := &fakeSender{err: errors.New("broker down")}

	newRelay(uc, es).processEventsBatch(context.Background())

	if uc.processed != 0 || uc.retried != 2 {
		t.Errorf("processed=%d retried=%d, want 0 and 2", uc.processed, uc.retried)
	}
}

func TestProcessEventsBatch_Empty(t *testing.T) {
	uc := &fakeOutbox{}
	es := &fakeSender{}

	newRelay(uc, es).processEventsBatch(context.Background())

	if uc.processing != 0 || es.sent != 0 {
		t.Error("empty batch touched the outbox")
	}
}

func TestShutdown_ClosesSender(t *testing.T) {
	uc := &fakeOutbox{}
	es := &fakeSender{}
	r := newRelay(uc, es)

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if !es.closed {
		t.Error("sender not closed")
	}
}

func TestProcessEventsBatch_NonLifecycleEventsFail(t *testing.T) {
	presence := &entity.OutboxEvent{ID: uuid.New(), EventType: entity.EventPresenceChanged, Status: entity.Pending}
	unknown := &entity.OutboxEvent{ID: uuid.New(), EventType: "image:resized", Status: entity.Pending}
	uc := &fakeOutbox{pending: append(pendingEvents(1), presence, unknown)}
	es := &fakeSender{}

	newRelay(uc, es).processEventsBatch(context.Background())

	if es.sent != 1 || uc.processing != 1 || uc.processed != 1 {
		t.Errorf("sent=%d processing=%d processed=%d, want 1 each", es.sent, uc.processing, uc.processed)
	}
	if len(uc.failed) != 2 || uc.failed[0] != presence || uc.failed[1] != unknown {
		t.Errorf("failed = %v, want the presence and unknown events", uc.failed)
	}
}

func TestProcessEventsBatch_RecordEventsInLifecycleOrder(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	event := func(record uuid.UUID, name entity.EventName, createdAt time.Time) *entity.OutboxEvent {
		return &entity.OutboxEvent{ID: uuid.New(), AggregateID: record, EventType: name, Status: entity.Pending, CreatedAt: createdAt}
	}

	// second was sent and expired unviewed within one instant
	uc := &fakeOutbox{pending: []*entity.OutboxEvent{
		event(second, entity.EventImageExpired, at),
		event(second, entity.EventMessageNew, at),
		event(first, entity.EventImageViewed, at.Add(-time.Second)),
	}}
	es := &fakeSender{}

	newRelay(uc, es).processEventsBatch(context.Background())

	want := []entity.EventName{entity.EventImageViewed, entity.EventMessageNew, entity.EventImageExpired}
	if len(es.order) != len(want) {
		t.Fatalf("sent %v", es.order)
	}
	for i := range want {
		if es.order[i] != want[i] {
			t.Errorf("sent %v, want %v", es.order, want)

			break
		}
	}
}
