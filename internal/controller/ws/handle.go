package ws

import (
	"sync"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/infrastructure/realtime"
)

// connHandle is the realtime.Handle of one websocket connection. Frames are
// queued on a bounded buffer and written by the connection's writer goroutine.
type connHandle struct {
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newConnHandle(buffer int) *connHandle {
	return &connHandle{
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// Send never blocks. A full buffer drops the frame.
func (h *connHandle) Send(frame []byte) error {
	select {
	case <-h.done:
		return realtime.ErrHandleClosed
	default:
	}

	select {
	case h.send <- frame:
		return nil
	case <-h.done:
		return realtime.ErrHandleClosed
	default:
		return realtime.ErrSlowConsumer
	}
}

func (h *connHandle) Close() error {
	h.once.Do(func() {
		close(h.done)
	})

	return nil
}

func (h *connHandle) Done() <-chan struct{} {
	return h.done
}
