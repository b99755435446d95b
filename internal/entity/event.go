package entity

import (
	"time"

	"github.com/google/uuid"
)

type EventName string

const (
	EventMessageNew      EventName = "message:new"
	EventImageViewed     EventName = "image:viewed"
	EventImageExpired    EventName = "image:expired"
	EventPresenceChanged EventName = "presence:changed"
)

// LifecycleRank orders the events of one record: message:new, then
// image:viewed, then image:expired. Other names have no rank.
func (n EventName) LifecycleRank() (int, bool) {
	switch n {
	case EventMessageNew:
		return 0, true
	case EventImageViewed:
		return 1, true
	case EventImageExpired:
		return 2, true
	default:
		return 0, false
	}
}

// Event is the closed set of real-time events. Implementations live in this file only.
type Event interface {
	Name() EventName
	isEvent()
}

// RoomEvent is an event scoped to one conversation room.
type RoomEvent interface {
	Event
	Conversation() ConversationKey
	Record() uuid.UUID
}

type NewMessage struct {
	ConversationKey ConversationKey `json:"conversationKey"`
	RecordID        uuid.UUID       `json:"recordId"`
	SenderID        string          `json:"senderId"`
	ReceiverID      string          `json:"receiverId"`
	MimeType        string          `json:"mimeType"`
	Preview         string          `json:"preview"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type ImageViewed struct {
	ConversationKey ConversationKey `json:"conversationKey"`
	RecordID        uuid.UUID       `json:"recordId"`
	ViewedAt        time.Time       `json:"viewedAt"`
	ExpiresAt       time.Time       `json:"expiresAt"`
}

type ImageExpired struct {
	ConversationKey ConversationKey `json:"conversationKey"`
	RecordID        uuid.UUID       `json:"recordId"`
	Trigger         Trigger         `json:"trigger"`
	ExpiredAt       time.Time       `json:"expiredAt"`
}

type PresenceChanged struct {
	UserID string    `json:"userId"`
	Online bool      `json:"online"`
	At     time.Time `json:"at"`
}

func (NewMessage) Name() EventName      { return EventMessageNew }
func (ImageViewed) Name() EventName     { return EventImageViewed }
func (ImageExpired) Name() EventName    { return EventImageExpired }
func (PresenceChanged) Name() EventName { return EventPresenceChanged }

func (NewMessage) isEvent()      {}
func (ImageViewed) isEvent()     {}
func (ImageExpired) isEvent()    {}
func (PresenceChanged) isEvent() {}

func (e NewMessage) Conversation() ConversationKey   { return e.ConversationKey }
func (e ImageViewed) Conversation() ConversationKey  { return e.ConversationKey }
func (e ImageExpired) Conversation() ConversationKey { return e.ConversationKey }

func (e NewMessage) Record() uuid.UUID   { return e.RecordID }
func (e ImageViewed) Record() uuid.UUID  { return e.RecordID }
func (e ImageExpired) Record() uuid.UUID { return e.RecordID }
