package dto

import (
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/google/uuid"
)

// LifecycleMeta follows the envelope meta used by the event bus consumers.
type LifecycleMeta struct {
	ID       string           `json:"id"`
	Type     entity.EventName `json:"type"`
	Time     time.Time        `json:"time"`
	Producer string           `json:"producer"`
}

// LifecycleData is the audit view of one committed transition.
type LifecycleData struct {
	RecordID        uuid.UUID              `json:"record_id"`
	ConversationKey entity.ConversationKey `json:"conversation_key"`
	SenderID        string                 `json:"sender_id"`
	ReceiverID      string                 `json:"receiver_id"`
	State           entity.State           `json:"state"`
	Trigger         entity.Trigger         `json:"trigger,omitempty"`
	ViewedAt        *time.Time             `json:"viewed_at,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`

	// PurgedKey is set on expiry; the purge consumer deletes that blob.
	PurgedKey string `json:"purged_key,omitempty"`
}

type LifecycleEnvelope struct {
	Meta LifecycleMeta `json:"meta"`
	Data LifecycleData `json:"data"`
}
