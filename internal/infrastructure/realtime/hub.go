package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/andreyxaxa/Ephemeral-Chat/internal/metrics"
	"github.com/andreyxaxa/Ephemeral-Chat/pkg/logger"
	"github.com/google/uuid"
)

// FrameNotify is the lightweight frame sent to a participant who is connected
// but not looking at the conversation.
const FrameNotify = "notify"

const _stripes = 64

type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type Notification struct {
	ConversationKey entity.ConversationKey `json:"conversationKey"`
	Event           entity.EventName       `json:"event"`
	RecordID        uuid.UUID              `json:"recordId"`
}

// Hub publishes events to the rooms of a Directory. Publishes to one room are
// serialized, so both participants see events in publish order.
type Hub struct {
	dir     *Directory
	stripes [_stripes]sync.Mutex
	logger  logger.Interface
	now     func() time.Time
}

func NewHub(dir *Directory, l logger.Interface) *Hub {
	return &Hub{
		dir:    dir,
		logger: l,
		now:    time.Now,
	}
}

func (h *Hub) Directory() *Directory {
	return h.dir
}

// Publish delivers ev to everyone joined to its room and a notification to
// the other conversation members who are online elsewhere. Delivery failures
// are logged and dropped.
func (h *Hub) Publish(_ context.Context, ev entity.RoomEvent) {
	key := ev.Conversation()

	frame, err := encode(string(ev.Name()), ev)
	if err != nil {
		h.logger.Error(err, "Hub - Publish - encode")

		return
	}

	note, err := encode(FrameNotify, Notification{
		ConversationKey: key,
		Event:           ev.Name(),
		RecordID:        ev.Record(),
	})
	if err != nil {
		h.logger.Error(err, "Hub - Publish - encode notification")

		return
	}

	mu := h.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	joined := make(map[string]struct{}, 2)
	for _, p := range h.dir.RoomMembers(key) {
		joined[p.userID] = struct{}{}
		h.deliver(p, frame, "room")
	}

	for _, userID := range key.Members() {
		if _, ok := joined[userID]; ok {
			continue
		}
		p, ok := h.dir.Lookup(userID)
		if !ok {
			continue
		}
		h.deliver(p, note, "notify")
	}
}

// Connect registers a handle and announces the participant online.
func (h *Hub) Connect(userID string, handle Handle) *Participant {
	p, replaced := h.dir.Register(userID, handle)
	if replaced != nil {
		if err := replaced.handle.Close(); err != nil {
			h.logger.Debug(err, "Hub - Connect - replaced.handle.Close")
		}
	}

	metrics.ConnectedParticipants.Set(float64(h.dir.Len()))

	if replaced == nil {
		h.broadcastPresence(userID, true)
	}

	return p
}

// Disconnect removes the participant and announces it offline, unless a newer
// connection of the same user already took its place.
func (h *Hub) Disconnect(p *Participant) {
	if !h.dir.Unregister(p) {
		return
	}

	metrics.ConnectedParticipants.Set(float64(h.dir.Len()))

	h.broadcastPresence(p.userID, false)
}

func (h *Hub) Join(p *Participant, key entity.ConversationKey) error {
	mu := h.stripe(key)
	mu.Lock()
	defer mu.Unlock()

	return h.dir.Join(p, key)
}

func (h *Hub) Leave(p *Participant) {
	h.dir.Leave(p)
}

func (h *Hub) Close() error {
	err := h.dir.Close()
	metrics.ConnectedParticipants.Set(0)

	return err
}

func (h *Hub) broadcastPresence(userID string, online bool) {
	ev := entity.PresenceChanged{UserID: userID, Online: online, At: h.now().UTC()}

	frame, err := encode(string(ev.Name()), ev)
	if err != nil {
		h.logger.Error(err, "Hub - broadcastPresence - encode")

		return
	}

	for _, p := range h.dir.Snapshot() {
		if p.userID == userID {
			continue
		}
		h.deliver(p, frame, "presence")
	}
}

func (h *Hub) deliver(p *Participant, frame []byte, kind string) {
	if err := p.handle.Send(frame); err != nil {
		metrics.FanOutDroppedTotal.WithLabelValues(kind).Inc()
		h.logger.Debug("Hub - deliver - dropped %s frame for %s: %v", kind, p.userID, err)

		return
	}

	metrics.FanOutDeliveredTotal.WithLabelValues(kind).Inc()
}

func (h *Hub) stripe(key entity.ConversationKey) *sync.Mutex {
	f := fnv.New32a()
	_, _ = f.Write([]byte(key.String()))

	return &h.stripes[f.Sum32()%_stripes]
}

func encode(event string, data any) ([]byte, error) {
	b, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("realtime - encode - json.Marshal: %w", err)
	}

	return b, nil
}
