package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
)

type stubSender struct {
	err    error
	sent   int
	closed bool
}

func (s *stubSender) SendEvents(_ context.Context, events []*entity.OutboxEvent) error {
	if s.err != nil {
		return s.err
	}
	s.sent += len(events)

	return nil
}

func (s *stubSender) Close() error {
	s.closed = true

	return nil
}

func TestSenders_MirrorFailureIsReportedNotReturned(t *testing.T) {
	primary := &stubSender{}
	mirror := &stubSender{err: errors.New("amqp down")}

	var reported error
	s := NewSenders(primary, func(err error) { reported = err }, mirror)

	if err := s.SendEvents(context.Background(), make([]*entity.OutboxEvent, 2)); err != nil {
		t.Fatalf("err = %v", err)
	}
	if primary.sent != 2 {
		t.Errorf("primary sent %d", primary.sent)
	}
	if reported == nil {
		t.Error("mirror failure not reported")
	}
}

func TestSenders_PrimaryFailureFailsBatch(t *testing.T) {
	primary := &stubSender{err: errors.New("kafka down")}
	mirror := &stubSender{}

	s := NewSenders(primary, nil, mirror)

	if err := s.SendEvents(context.Background(), make([]*entity.OutboxEvent, 1)); err == nil {
		t.Fatal("expected an error")
	}
	if mirror.sent != 0 {
		t.Error("mirror received a batch the primary rejected")
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !primary.closed || !mirror.closed {
		t.Error("senders not closed")
	}
}
