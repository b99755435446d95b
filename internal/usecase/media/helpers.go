package media

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/google/uuid"
)

const _lockStripes = 64

// recordLocks serializes the commit and publish of one record's transitions
// inside this process, so its events reach the room in commit order.
type recordLocks struct {
	stripes [_lockStripes]sync.Mutex
}

func (l *recordLocks) lock(id uuid.UUID) (unlock func()) {
	mu := &l.stripes[stripe(id)]
	mu.Lock()

	return mu.Unlock
}

// cacheGenerations orders cache fills against commits. A fill that read the
// store before a commit of the same stripe finished is dropped, so a copy
// older than the newest commit never lands in the cache.
type cacheGenerations struct {
	stripes [_lockStripes]struct {
		mu  sync.Mutex
		gen uint64
	}
}

func (g *cacheGenerations) current(id uuid.UUID) uint64 {
	s := &g.stripes[stripe(id)]
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gen
}

// fill runs add only if no commit of id's stripe happened since gen was read.
func (g *cacheGenerations) fill(id uuid.UUID, gen uint64, add func()) bool {
	s := &g.stripes[stripe(id)]
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false
	}
	add()

	return true
}

// invalidate runs remove and moves the stripe to a new generation.
func (g *cacheGenerations) invalidate(id uuid.UUID, remove func()) {
	s := &g.stripes[stripe(id)]
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	remove()
}

func stripe(id uuid.UUID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(id[:])

	return h.Sum32() % _lockStripes
}

func (uc *UseCase) newOutboxEvent(
	name entity.EventName,
	rec *entity.MediaRecord,
	trigger entity.Trigger,
	purgedKey string,
) (*entity.OutboxEvent, error) {
	eventID := uuid.New()
	now := uc.machine.Now()

	envelope := dto.LifecycleEnvelope{
		Meta: dto.LifecycleMeta{
			ID:       eventID.String(),
			Type:     name,
			Time:     now,
			Producer: uc.producer,
		},
		Data: dto.LifecycleData{
			RecordID:        rec.ID,
			ConversationKey: rec.ConversationKey,
			SenderID:        rec.SenderID,
			ReceiverID:      rec.ReceiverID,
			State:           rec.State,
			Trigger:         trigger,
			ViewedAt:        rec.ViewedAt,
			ExpiresAt:       rec.ExpiresAt,
			PurgedKey:       purgedKey,
		},
	}

	b, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("MediaUseCase - newOutboxEvent - json.Marshal: %w", err)
	}

	return &entity.OutboxEvent{
		ID:          eventID,
		AggregateID: rec.ID,
		EventType:   name,
		Payload:     b,
		Status:      entity.Pending,
		CreatedAt:   now,
		RetryCount:  0,
	}, nil
}
