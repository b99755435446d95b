package dto

import (
	"time"

	"github.com/andreyxaxa/Ephemeral-Chat/internal/entity"
	"github.com/google/uuid"
)

// ViewWindow is the countdown started by the receiver's first view.
type ViewWindow struct {
	ViewedAt  time.Time `json:"viewed_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ClientMedia is the only shape in which a media record leaves the service.
type ClientMedia struct {
	ID              uuid.UUID              `json:"id"`
	ConversationKey entity.ConversationKey `json:"conversation_key"`
	SenderID        string                 `json:"sender_id"`
	ReceiverID      string                 `json:"receiver_id"`
	MimeType        string                 `json:"mime_type"`
	State           entity.State           `json:"state"`
	Read            bool                   `json:"read"`
	Expired         bool                   `json:"expired"`
	Preview         string                 `json:"preview"`
	CreatedAt       time.Time              `json:"created_at"`
	ViewedAt        *time.Time             `json:"viewed_at,omitempty"`
	ExpiresAt       *time.Time             `json:"expires_at,omitempty"`

	// Payload is nil whenever the image is expired or not yet unlocked for the reader.
	Payload []byte `json:"payload,omitempty"`
}
