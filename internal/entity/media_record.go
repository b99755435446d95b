package entity

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateActive  State = "active"
	StateViewing State = "viewing"
	StateExpired State = "expired"
)

type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatGIF  ImageFormat = "gif"
	FormatWebP ImageFormat = "webp"
)

// MimeType is the only declared content type accepted for the format.
func (f ImageFormat) MimeType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	default:
		return ""
	}
}

const (
	// PreviewImage is the textual preview of a live image message.
	PreviewImage = "Photo"
	// PreviewExpired replaces the preview and the payload once a record is expired.
	PreviewExpired = "Image expired"
)

// MediaRecord is one image-bearing message. The payload bytes live in the blob
// store under PayloadKey; a nil PayloadKey means the payload is gone.
type MediaRecord struct {
	ID uuid.UUID `json:"id"`

	ConversationKey ConversationKey `json:"conversation_key"`
	SenderID        string          `json:"sender_id"`
	ReceiverID      string          `json:"receiver_id"`

	PayloadKey       *string     `json:"-"`
	PayloadSize      int64       `json:"payload_size"`
	DeclaredMimeType string      `json:"declared_mime_type"`
	SniffedFormat    ImageFormat `json:"sniffed_format"`
	Preview          string      `json:"preview"`

	State State `json:"state"` // active, viewing, expired
	Read  bool  `json:"read"`

	CreatedAt time.Time  `json:"created_at"`
	ViewedAt  *time.Time `json:"viewed_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (r *MediaRecord) HasPayload() bool {
	return r.PayloadKey != nil && *r.PayloadKey != ""
}

func (r *MediaRecord) IsParticipant(userID string) bool {
	return userID != "" && (userID == r.SenderID || userID == r.ReceiverID)
}

func (r *MediaRecord) Clone() *MediaRecord {
	c := *r
	if r.PayloadKey != nil {
		key := *r.PayloadKey
		c.PayloadKey = &key
	}
	if r.ViewedAt != nil {
		v := *r.ViewedAt
		c.ViewedAt = &v
	}
	if r.ExpiresAt != nil {
		e := *r.ExpiresAt
		c.ExpiresAt = &e
	}

	return &c
}
