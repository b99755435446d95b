package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
	"github.com/google/uuid"
)

var errStoreDown = errors.New("store down")

// memStore implements the record repo and the transactor. Every write that can
// fail in these tests fails before it changes anything, so transactions need
// no rollback.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*entity.MediaRecord
	outbox  []*entity.OutboxEvent

	failCreate     bool
	failTransition bool
	// beforeTransition runs once, before the next Transition applies.
	beforeTransition func()
	// afterGet runs once, after the next GetByID has read its row.
	afterGet func()
}

func newMemStore() *memStore {
	return &memStore{records: make(map[uuid.UUID]*entity.MediaRecord)}
}

func (s *memStore) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return f(ctx)
}

func (s *memStore) Create(_ context.Context, rec *entity.MediaRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failCreate {
		return errStoreDown
	}
	s.records[rec.ID] = rec.Clone()

	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*entity.MediaRecord, error) {
	s.mu.Lock()
	rec, ok := s.records[id]
	if ok {
		rec = rec.Clone()
	}
	hook := s.afterGet
	s.afterGet = nil
	s.mu.Unlock()

	if !ok {
		return nil, errs.ErrRecordNotFound
	}
	if hook != nil {
		hook()
	}

	return rec, nil
}

func (s *memStore) FindDueForExpiry(_ context.Context, now time.Time, limit int, skip uuid.UUIDs) ([]*entity.MediaRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	skipped := make(map[uuid.UUID]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}

	var out []*entity.MediaRecord
	for _, rec := range s.records {
		if skipped[rec.ID] {
			continue
		}
		if rec.State != entity.StateExpired && rec.ExpiresAt != nil && !rec.ExpiresAt.After(now) {
			out = append(out, rec.Clone())
		}
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (s *memStore) Transition(_ context.Context, rec *entity.MediaRecord, from entity.State) (bool, error) {
	s.mu.Lock()
	hook := s.beforeTransition
	s.beforeTransition = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failTransition {
		return false, errStoreDown
	}

	cur, ok := s.records[rec.ID]
	if !ok || cur.State != from {
		return false, nil
	}
	s.records[rec.ID] = rec.Clone()

	return true, nil
}

func (s *memStore) MarkRead(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return errs.ErrRecordNotFound
	}
	rec.Read = true

	return nil
}

// put stores rec as is, bypassing the use case.
func (s *memStore) put(rec *entity.MediaRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.ID] = rec.Clone()
}

func (s *memStore) get(id uuid.UUID) *entity.MediaRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.records[id].Clone()
}

func (s *memStore) events() []*entity.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]*entity.OutboxEvent(nil), s.outbox...)
}

type memOutbox struct {
	store *memStore

	deletedBefore time.Time
}

func (o *memOutbox) Create(_ context.Context, event *entity.OutboxEvent) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	o.store.outbox = append(o.store.outbox, event)

	return nil
}

func (o *memOutbox) GetPendingEvents(_ context.Context, maxRetries, limit int) ([]*entity.OutboxEvent, error) {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	var out []*entity.OutboxEvent
	for _, e := range o.store.outbox {
		if e.Status == entity.Pending && e.RetryCount < maxRetries && len(out) < limit {
			out = append(out, e)
		}
	}

	return out, nil
}

func (o *memOutbox) setStatus(IDs uuid.UUIDs, status entity.Status, retry bool) {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	set := make(map[uuid.UUID]struct{}, len(IDs))
	for _, id := range IDs {
		set[id] = struct{}{}
	}
	for _, e := range o.store.outbox {
		if _, ok := set[e.ID]; ok {
			e.Status = status
			if retry {
				e.RetryCount++
			}
		}
	}
}

func (o *memOutbox) MarkAsProcessingBatch(_ context.Context, IDs uuid.UUIDs) error {
	o.setStatus(IDs, entity.Processing, false)

	return nil
}

func (o *memOutbox) MarkAsProcessedBatch(_ context.Context, IDs uuid.UUIDs) error {
	o.setStatus(IDs, entity.Processed, false)

	return nil
}

func (o *memOutbox) IncrementRetryCountBatch(_ context.Context, IDs uuid.UUIDs) error {
	o.setStatus(IDs, entity.Pending, true)

	return nil
}

func (o *memOutbox) MarkAsFailedBatch(_ context.Context, IDs uuid.UUIDs) error {
	o.setStatus(IDs, entity.Failed, false)

	return nil
}

func (o *memOutbox) MarkMaxRetriesAsFailed(_ context.Context, maxRetries int) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	for _, e := range o.store.outbox {
		if e.RetryCount >= maxRetries && !e.Status.IsTerminal() {
			e.Status = entity.Failed
		}
	}

	return nil
}

func (o *memOutbox) DeleteOldProcessedAndFailed(_ context.Context, olderThan time.Time) (int64, error) {
	o.deletedBefore = olderThan

	return 0, nil
}

type memPayloads struct {
	mu    sync.Mutex
	blobs map[string][]byte

	failDelete bool
}

func newMemPayloads() *memPayloads {
	return &memPayloads{blobs: make(map[string][]byte)}
}

func (p *memPayloads) UploadBytes(_ context.Context, key string, data []byte, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.blobs[key] = append([]byte(nil), data...)

	return nil
}

func (p *memPayloads) DownloadBytes(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.blobs[key]
	if !ok {
		return nil, errStoreDown
	}

	return b, nil
}

func (p *memPayloads) Delete(_ context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failDelete {
		return errStoreDown
	}
	delete(p.blobs, key)

	return nil
}

func (p *memPayloads) has(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.blobs[key]

	return ok
}

type recordingFanOut struct {
	mu     sync.Mutex
	events []entity.RoomEvent
}

func (f *recordingFanOut) Publish(_ context.Context, ev entity.RoomEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, ev)
}

func (f *recordingFanOut) names() []entity.EventName {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]entity.EventName, 0, len(f.events))
	for _, ev := range f.events {
		out = append(out, ev.Name())
	}

	return out
}

func (f *recordingFanOut) count(name entity.EventName) int {
	n := 0
	for _, got := range f.names() {
		if got == name {
			n++
		}
	}

	return n
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}
