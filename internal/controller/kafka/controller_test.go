package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/dto"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	infrakafka "github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/kafka"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/types/errs"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type fakePurger struct {
	purged []string
	err    error
}

func (f *fakePurger) FindDueForExpiry(context.Context, int, uuid.UUIDs) ([]*entity.MediaRecord, error) {
	return nil, nil
}

func (f *fakePurger) Expire(context.Context, *entity.MediaRecord) (bool, error) { return false, nil }

func (f *fakePurger) PurgePayload(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	f.purged = append(f.purged, key)

	return nil
}

func message(t *testing.T, name entity.EventName, purgedKey string) kafka.Message {
	t.Helper()

	b, err := json.Marshal(dto.LifecycleEnvelope{
		Meta: dto.LifecycleMeta{ID: "e-1", Type: name},
		Data: dto.LifecycleData{PurgedKey: purgedKey},
	})
	if err != nil {
		t.Fatal(err)
	}

	return kafka.Message{
		Value:   b,
		Headers: []kafka.Header{{Key: infrakafka.HeaderEventType, Value: []byte(name)}},
	}
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name    string
		msg     func(t *testing.T) kafka.Message
		purged  []string
		wantErr error
	}{
		{
			name:   "expired purges the blob",
			msg:    func(t *testing.T) kafka.Message { return message(t, entity.EventImageExpired, "payloads/1") },
			purged: []string{"payloads/1"},
		},
		{
			name: "viewed is ignored",
			msg:  func(t *testing.T) kafka.Message { return message(t, entity.EventImageViewed, "") },
		},
		{
			name: "no header falls back to the envelope",
			msg: func(t *testing.T) kafka.Message {
				m := message(t, entity.EventImageExpired, "payloads/2")
				m.Headers = nil

				return m
			},
			purged: []string{"payloads/2"},
		},
		{
			name:    "garbage",
			msg:     func(*testing.T) kafka.Message { return kafka.Message{Value: []byte("{")} },
			wantErr: errs.ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePurger{}
			c := New(p, nil, logger.NewNop(), 0, 0, 1)

			err := c.handle(context.Background(), tt.msg(t))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}

				return
			}
			if err != nil {
				t.Fatal(err)
			}

			if len(p.purged) != len(tt.purged) {
				t.Fatalf("purged %v, want %v", p.purged, tt.purged)
			}
			for i := range tt.purged {
				if p.purged[i] != tt.purged[i] {
					t.Errorf("purged %v, want %v", p.purged, tt.purged)
				}
			}
		})
	}
}

func TestHandle_PurgeFailureIsReturned(t *testing.T) {
	p := &fakePurger{err: errors.New("s3 down")}
	c := New(p, nil, logger.NewNop(), 0, 0, 1)

	err := c.handle(context.Background(), message(t, entity.EventImageExpired, "payloads/1"))
	if err == nil || errors.Is(err, errs.ErrUnknownEvent) {
		t.Errorf("err = %v, want a retryable error", err)
	}
}
