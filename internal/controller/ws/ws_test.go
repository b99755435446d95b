package ws

import (
	"errors"
	"sync"
	"testing"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/realtime"
)

func TestConnHandle_SendNeverBlocks(t *testing.T) {
	h := newConnHandle(2)

	if err := h.Send([]byte("1")); err != nil {
		t.Fatal(err)
	}
	if err := h.Send([]byte("2")); err != nil {
		t.Fatal(err)
	}
	if err := h.Send([]byte("3")); !errors.Is(err, realtime.ErrSlowConsumer) {
		t.Fatalf("err = %v, want ErrSlowConsumer", err)
	}

	if got := string(<-h.send); got != "1" {
		t.Errorf("first frame = %q", got)
	}
}

func TestConnHandle_CloseIsIdempotent(t *testing.T) {
	h := newConnHandle(1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Close()
		}()
	}
	wg.Wait()

	if err := h.Send([]byte("x")); !errors.Is(err, realtime.ErrHandleClosed) {
		t.Errorf("err = %v, want ErrHandleClosed", err)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done not closed")
	}
}

func TestJoinKey(t *testing.T) {
	want := entity.NewConversationKey("alice", "bob")

	tests := []struct {
		name    string
		cmd     command
		wantErr bool
	}{
		{name: "canonical key", cmd: command{ConversationKey: want.String()}},
		{name: "peer", cmd: command{PeerID: "bob"}},
		{name: "non canonical key", cmd: command{ConversationKey: "bob:alice"}, wantErr: true},
		{name: "self", cmd: command{PeerID: "alice"}, wantErr: true},
		{name: "empty", cmd: command{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := joinKey("alice", tt.cmd)
			if tt.wantErr {
				if err == nil {
					t.Errorf("got %v, want error", got)
				}

				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != want {
				t.Errorf("key = %v, want %v", got, want)
			}
		})
	}
}
