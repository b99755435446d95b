package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/google/uuid"
)

type fakeExpiry struct {
	mu      sync.Mutex
	due     []*entity.MediaRecord
	failFor map[uuid.UUID]bool
	// stale records are reported as already expired by someone else
	stale   map[uuid.UUID]bool
	expired []uuid.UUID
	finds   int
	tries   map[uuid.UUID]int
}

func (f *fakeExpiry) FindDueForExpiry(_ context.Context, limit int, skip uuid.UUIDs) ([]*entity.MediaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finds++

	skipped := make(map[uuid.UUID]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}

	var out []*entity.MediaRecord
	for _, rec := range f.due {
		if rec.State == entity.StateExpired || skipped[rec.ID] {
			continue
		}
		out = append(out, rec)
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

func (f *fakeExpiry) Expire(_ context.Context, rec *entity.MediaRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tries == nil {
		f.tries = make(map[uuid.UUID]int)
	}
	f.tries[rec.ID]++

	if f.failFor[rec.ID] {
		return false, errors.New("store down")
	}

	rec.State = entity.StateExpired
	if f.stale[rec.ID] {
		return false, nil
	}
	f.expired = append(f.expired, rec.ID)

	return true, nil
}

func (f *fakeExpiry) PurgePayload(context.Context, string) error { return nil }

func dueRecords(n int) []*entity.MediaRecord {
	out := make([]*entity.MediaRecord, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &entity.MediaRecord{ID: uuid.New(), State: entity.StateViewing})
	}

	return out
}

func TestSweep_PartialFailureDoesNotAbortBatch(t *testing.T) {
	recs := dueRecords(5)
	f := &fakeExpiry{due: recs, failFor: map[uuid.UUID]bool{recs[1].ID: true, recs[3].ID: true}}

	s := New(f, logger.NewNop(), time.Minute, time.Second, 10)

	if got := s.Sweep(context.Background()); got != 3 {
		t.Fatalf("expired %d, want 3", got)
	}

	want := []uuid.UUID{recs[0].ID, recs[2].ID, recs[4].ID}
	for i, id := range want {
		if f.expired[i] != id {
			t.Errorf("expired[%d] = %s, want %s", i, f.expired[i], id)
		}
	}
}

func TestSweep_DrainsInBatches(t *testing.T) {
	f := &fakeExpiry{due: dueRecords(25)}

	s := New(f, logger.NewNop(), time.Minute, time.Second, 10)

	if got := s.Sweep(context.Background()); got != 25 {
		t.Fatalf("expired %d, want 25", got)
	}
	if f.finds != 3 {
		t.Errorf("FindDueForExpiry called %d times, want 3", f.finds)
	}
}

func TestSweep_FailuresDoNotStarveLaterRecords(t *testing.T) {
	const batch = 10

	recs := dueRecords(batch + 1)
	failing := make(map[uuid.UUID]bool, batch)
	for _, rec := range recs[:batch] {
		failing[rec.ID] = true
	}
	good := recs[batch]

	f := &fakeExpiry{due: recs, failFor: failing}
	s := New(f, logger.NewNop(), time.Minute, time.Second, batch)

	if got := s.Sweep(context.Background()); got != 1 {
		t.Fatalf("expired %d, want 1", got)
	}
	if len(f.expired) != 1 || f.expired[0] != good.ID {
		t.Errorf("expired %v, want only %s", f.expired, good.ID)
	}
	if f.finds != 2 {
		t.Errorf("FindDueForExpiry called %d times, want 2", f.finds)
	}

	// the next run tries the failing records again, once each
	s.Sweep(context.Background())
	for _, rec := range recs[:batch] {
		if n := f.tries[rec.ID]; n != 2 {
			t.Errorf("record %s tried %d times over two runs, want 2", rec.ID, n)
		}
	}
}

func TestSweep_LostRacesAreNotCounted(t *testing.T) {
	recs := dueRecords(2)
	f := &fakeExpiry{due: recs, stale: map[uuid.UUID]bool{recs[0].ID: true}}

	s := New(f, logger.NewNop(), time.Minute, time.Second, 10)

	if got := s.Sweep(context.Background()); got != 1 {
		t.Errorf("expired %d, want 1", got)
	}
}

func TestSweeper_StartShutdown(t *testing.T) {
	f := &fakeExpiry{due: dueRecords(1)}
	s := New(f, logger.NewNop(), 5*time.Millisecond, time.Second, 10)

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start succeeded")
	}

	deadline := time.Now().Add(time.Second)
	for {
		f.mu.Lock()
		n := len(f.expired)
		f.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("ticker never swept")
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
}
