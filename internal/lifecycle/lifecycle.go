// Package lifecycle holds the state machine of an ephemeral image:
// active -> viewing -> expired. Every function here is free of I/O; callers
// persist the returned record and publish only after the write commits.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
)

const DefaultTTL = 5 * time.Minute

// Outcome describes one transition attempt. Applied is false for idempotent
// no-ops; Record is then the unchanged input.
type Outcome struct {
	Applied bool
	From    entity.State
	Record  *entity.MediaRecord

	// PurgedKey is the blob key released by an expiry.
	PurgedKey string
}

type Machine struct {
	ttl time.Duration
	now func() time.Time
}

type Option func(*Machine)

func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

func New(ttl time.Duration, opts ...Option) *Machine {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Machine{
		ttl: ttl,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *Machine) TTL() time.Duration {
	return m.ttl
}

func (m *Machine) Now() time.Time {
	return m.now().UTC()
}

// MarkViewed starts the countdown. Only the receiver may call it. Repeated
// calls return the first window unchanged.
func (m *Machine) MarkViewed(rec *entity.MediaRecord, actor entity.Actor) (Outcome, error) {
	if actor.ID == "" || actor.ID != rec.ReceiverID {
		return Outcome{}, fmt.Errorf("lifecycle - MarkViewed - actor %q is not the receiver: %w", actor.ID, errs.ErrForbidden)
	}

	if rec.State != entity.StateActive {
		return Outcome{From: rec.State, Record: rec}, nil
	}

	viewedAt := m.Now()
	expiresAt := viewedAt.Add(m.ttl)

	next := rec.Clone()
	next.State = entity.StateViewing
	next.ViewedAt = &viewedAt
	next.ExpiresAt = &expiresAt

	return Outcome{Applied: true, From: entity.StateActive, Record: next}, nil
}

// ForceExpire destroys the payload. Either participant or an administrator may
// expire early; the sweep passes TriggerSweep and is not a participant.
// An already expired record is a no-op. Expiring a record nobody viewed closes
// a zero-length window at now, so a non-active record always carries one.
func (m *Machine) ForceExpire(rec *entity.MediaRecord, actor entity.Actor, trigger entity.Trigger) (Outcome, error) {
	if trigger != entity.TriggerSweep && !actor.Admin && !rec.IsParticipant(actor.ID) {
		return Outcome{}, fmt.Errorf("lifecycle - ForceExpire - actor %q is not a participant: %w", actor.ID, errs.ErrForbidden)
	}

	switch rec.State {
	case entity.StateExpired:
		return Outcome{From: rec.State, Record: rec}, nil
	case entity.StateActive, entity.StateViewing:
	default:
		return Outcome{}, fmt.Errorf("lifecycle - ForceExpire - unknown state %q: %w", rec.State, errs.ErrIllegalTransition)
	}

	next := rec.Clone()

	if next.State == entity.StateActive {
		now := m.Now()
		closedAt := now
		next.ViewedAt = &now
		next.ExpiresAt = &closedAt
	}

	var purged string
	if next.PayloadKey != nil {
		purged = *next.PayloadKey
	}

	next.PayloadKey = nil
	next.Preview = entity.PreviewExpired
	next.State = entity.StateExpired

	return Outcome{Applied: true, From: rec.State, Record: next, PurgedKey: purged}, nil
}

// IsEffectivelyExpired is the single authority on whether payload bytes may be shown.
func (m *Machine) IsEffectivelyExpired(rec *entity.MediaRecord) bool {
	return IsEffectivelyExpired(rec, m.Now())
}

func IsEffectivelyExpired(rec *entity.MediaRecord, now time.Time) bool {
	if rec.State == entity.StateExpired {
		return true
	}

	return rec.ExpiresAt != nil && !now.Before(*rec.ExpiresAt)
}

// IsDue reports whether the sweep should expire rec at now.
func IsDue(rec *entity.MediaRecord, now time.Time) bool {
	return rec.State != entity.StateExpired && rec.ExpiresAt != nil && !rec.ExpiresAt.After(now)
}
